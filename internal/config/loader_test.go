package config_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	config "github.com/okian/gitrank/internal/config"
	. "github.com/smartystreets/goconvey/convey"
)

func TestLoad(t *testing.T) {
	Convey("Given a clean environment", t, func() {
		// Each leaf reruns this closure; drop any variable a previous
		// leaf set so cases stay independent.
		for _, key := range []string{
			"GITRANK_CONFIG", "GITRANK_ADDR", "GITRANK_WORKER_COUNT", "GITRANK_GITHUB_TOKEN",
		} {
			t.Setenv(key, "") // register restore of the original value
			os.Unsetenv(key)
		}

		Convey("When loading with no overrides", func() {
			cfg, err := config.Load(context.Background())

			Convey("Then defaults should apply", func() {
				So(err, ShouldBeNil)
				So(cfg.Addr, ShouldEqual, ":9080")
				So(cfg.UpdateIntervalMinutes, ShouldEqual, 360)
				So(cfg.ScoreWeights["prs_merged"], ShouldEqual, 5.0)
				So(cfg.AchievementThresholds["code_warrior"], ShouldEqual, 1000)
			})
		})

		Convey("When environment variables override defaults", func() {
			t.Setenv("GITRANK_ADDR", ":7070")
			t.Setenv("GITRANK_WORKER_COUNT", "16")
			t.Setenv("GITRANK_GITHUB_TOKEN", "ghp_test")

			cfg, err := config.Load(context.Background())

			Convey("Then the environment should win", func() {
				So(err, ShouldBeNil)
				So(cfg.Addr, ShouldEqual, ":7070")
				So(cfg.WorkerCount, ShouldEqual, 16)
				So(cfg.GitHubToken, ShouldEqual, "ghp_test")
			})
		})

		Convey("When a YAML file is provided", func() {
			dir := t.TempDir()
			path := filepath.Join(dir, "gitrank.yaml")
			yaml := []byte("addr: \":6060\"\nupdate_interval_minutes: 60\nscore_weights:\n  commits: 0.5\n")
			So(os.WriteFile(path, yaml, 0o600), ShouldBeNil)
			t.Setenv("GITRANK_CONFIG", path)

			Convey("And no environment override exists", func() {
				cfg, err := config.Load(context.Background())

				Convey("Then the file should win over defaults", func() {
					So(err, ShouldBeNil)
					So(cfg.Addr, ShouldEqual, ":6060")
					So(cfg.UpdateIntervalMinutes, ShouldEqual, 60)
					So(cfg.ScoreWeights["commits"], ShouldEqual, 0.5)
				})
			})

			Convey("And an environment override exists", func() {
				t.Setenv("GITRANK_ADDR", ":5050")
				cfg, err := config.Load(context.Background())

				Convey("Then the environment should win over the file", func() {
					So(err, ShouldBeNil)
					So(cfg.Addr, ShouldEqual, ":5050")
				})
			})
		})

		Convey("When the config file is missing", func() {
			t.Setenv("GITRANK_CONFIG", "/nonexistent/gitrank.yaml")
			_, err := config.Load(context.Background())

			Convey("Then loading should fail with the load sentinel", func() {
				So(errors.Is(err, config.ErrLoadConfig), ShouldBeTrue)
			})
		})

		Convey("When validation fails", func() {
			t.Setenv("GITRANK_WORKER_COUNT", "0")
			_, err := config.Load(context.Background())

			Convey("Then loading should fail with the invalid sentinel", func() {
				So(errors.Is(err, config.ErrInvalidConfig), ShouldBeTrue)
			})
		})
	})
}
