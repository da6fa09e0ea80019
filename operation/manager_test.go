package operation

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"go.viam.com/test"
)

func TestSingleOperationManager(t *testing.T) {
	ctx := context.Background()
	som := SingleOperationManager{}

	t.Run("nested operation does not cancel parent", func(t *testing.T) {
		ctx1, close1 := som.New(ctx)
		defer close1()
		_, close2 := som.New(ctx1)
		defer close2()
		test.That(t, ctx1.Err(), test.ShouldBeNil)
	})

	t.Run("cancelling on different context works", func(t *testing.T) {
		res := int32(0)
		started := make(chan struct{})

		var wg sync.WaitGroup
		wg.Add(1)
		go func() {
			defer wg.Done()
			var once sync.Once
			err := som.WaitForSuccess(context.Background(), 10*time.Second, func(ctx context.Context) (bool, error) {
				once.Do(func() { close(started) })
				return false, nil
			})
			if err == nil {
				atomic.StoreInt32(&res, 1)
			}
		}()

		<-started
		som.CancelRunning(ctx)

		wg.Wait()
		test.That(t, res, test.ShouldEqual, 0)
	})

	t.Run("WaitForSuccess", func(t *testing.T) {
		count := int64(0)

		err := som.WaitForSuccess(
			ctx,
			time.Millisecond,
			func(ctx context.Context) (bool, error) {
				if atomic.AddInt64(&count, 1) == 5 {
					return true, nil
				}
				return false, nil
			},
		)
		test.That(t, err, test.ShouldBeNil)
		test.That(t, count, test.ShouldEqual, int64(5))
	})
}
