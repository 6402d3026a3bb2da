package queue_test

import (
	"context"
	"testing"

	queue "github.com/okian/gitrank/internal/adapters/mq/queue"
	. "github.com/smartystreets/goconvey/convey"
)

func TestInMemoryQueue(t *testing.T) {
	Convey("Given a queue with a small capacity", t, func() {
		q := queue.NewInMemoryQueue(queue.WithCapacity(2))
		ctx := context.Background()

		Convey("When enqueuing within capacity", func() {
			ok1 := q.Enqueue(ctx, queue.Job{CycleID: "c1", Username: "alice"})
			ok2 := q.Enqueue(ctx, queue.Job{CycleID: "c1", Username: "bob"})

			Convey("Then both jobs should be accepted", func() {
				So(ok1, ShouldBeTrue)
				So(ok2, ShouldBeTrue)
				So(q.Len(ctx), ShouldEqual, 2)
			})
		})

		Convey("When the queue is full", func() {
			q.Enqueue(ctx, queue.Job{Username: "alice"})
			q.Enqueue(ctx, queue.Job{Username: "bob"})

			Convey("Then further enqueues should be refused", func() {
				So(q.Enqueue(ctx, queue.Job{Username: "carol"}), ShouldBeFalse)
			})
		})

		Convey("When the queue is closed", func() {
			q.Enqueue(ctx, queue.Job{Username: "alice"})
			So(q.Close(), ShouldBeNil)

			Convey("Then enqueues should be refused", func() {
				So(q.IsClosed(), ShouldBeTrue)
				So(q.Enqueue(ctx, queue.Job{Username: "bob"}), ShouldBeFalse)
			})

			Convey("And pending jobs should still be delivered before the channel closes", func() {
				jobs := q.Dequeue(ctx)

				var got []queue.Job
				for j := range jobs {
					got = append(got, j)
				}
				So(got, ShouldHaveLength, 1)
				So(got[0].Username, ShouldEqual, "alice")
			})

			Convey("And closing twice should be harmless", func() {
				So(q.Close(), ShouldBeNil)
			})
		})

		Convey("When the consumer stops before taking everything", func() {
			q.Enqueue(ctx, queue.Job{Username: "alice"})
			q.Enqueue(ctx, queue.Job{Username: "bob"})
			So(q.Close(), ShouldBeNil)

			first := <-q.Dequeue(ctx)

			Convey("Then the remainder is recoverable via Drain", func() {
				rest := q.Drain()
				So(first.Username, ShouldEqual, "alice")
				So(rest, ShouldHaveLength, 1)
				So(rest[0].Username, ShouldEqual, "bob")
			})
		})

		Convey("When draining an exhausted queue", func() {
			q.Enqueue(ctx, queue.Job{Username: "alice"})
			So(q.Close(), ShouldBeNil)
			for range q.Dequeue(ctx) {
			}

			Convey("Then Drain should come back empty", func() {
				So(q.Drain(), ShouldBeEmpty)
			})
		})
	})
}
