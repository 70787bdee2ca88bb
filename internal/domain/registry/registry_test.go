package registry_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/hay5612/scorebot/internal/domain/estimator"
	"github.com/hay5612/scorebot/internal/domain/features"
	"github.com/hay5612/scorebot/internal/domain/registry"
	"github.com/hay5612/scorebot/internal/domain/types"
	"github.com/hay5612/scorebot/pkg/logger"
	. "github.com/smartystreets/goconvey/convey"
)

func init() {
	if err := logger.Init(); err != nil {
		panic(err)
	}
}

type constClassifier float64

func (c constClassifier) PredictProbability([]float64) (float64, error) { return float64(c), nil }

type constRegressor float64

func (c constRegressor) Predict([]float64) (float64, error) { return float64(c), nil }

func newPair() *registry.ModelPair {
	return &registry.ModelPair{
		Schema: features.Schema{"epa_home", "epa_away"},
		Win:    constClassifier(0.5),
		Diff:   constRegressor(1),
	}
}

var (
	_ estimator.Classifier = constClassifier(0)
	_ estimator.Regressor  = constRegressor(0)
)

func TestRegistry_Resolve(t *testing.T) {
	Convey("Given a registry whose loader blocks until released", t, func() {
		var calls atomic.Int64
		release := make(chan struct{})
		reg := registry.New(registry.LoaderFunc(func(ctx context.Context, mt types.ModelType) (*registry.ModelPair, error) {
			calls.Add(1)
			<-release
			return newPair(), nil
		}))

		Convey("When many goroutines resolve the same type concurrently", func() {
			const n = 50
			pairs := make([]*registry.ModelPair, n)
			errs := make([]error, n)
			var wg sync.WaitGroup
			for i := 0; i < n; i++ {
				wg.Add(1)
				go func(i int) {
					defer wg.Done()
					pairs[i], errs[i] = reg.Resolve(context.Background(), "LINEAR")
				}(i)
			}
			time.Sleep(50 * time.Millisecond)
			close(release)
			wg.Wait()

			Convey("Then exactly one load runs and every caller shares its pair", func() {
				So(calls.Load(), ShouldEqual, 1)
				So(reg.Loads(), ShouldEqual, 1)
				for i := 0; i < n; i++ {
					So(errs[i], ShouldBeNil)
					So(pairs[i], ShouldPointTo, pairs[0])
				}
				So(pairs[0].Type, ShouldEqual, types.ModelLinear)
				So(pairs[0].LoadedAt.IsZero(), ShouldBeFalse)
			})

			Convey("And later resolutions hit the cache", func() {
				p, err := reg.Resolve(context.Background(), "linear")
				So(err, ShouldBeNil)
				So(p, ShouldPointTo, pairs[0])
				So(calls.Load(), ShouldEqual, 1)
				So(reg.Loaded(), ShouldResemble, []types.ModelType{types.ModelLinear})
			})
		})

		Convey("When the caller's context ends while the load is in flight", func() {
			ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
			defer cancel()
			_, err := reg.Resolve(ctx, "rf")

			Convey("Then the caller gets its context error and the load still completes", func() {
				So(errors.Is(err, context.DeadlineExceeded), ShouldBeTrue)
				close(release)
				p, err := reg.Resolve(context.Background(), "rf")
				So(err, ShouldBeNil)
				So(p, ShouldNotBeNil)
				So(calls.Load(), ShouldEqual, 1)
			})
		})
	})

	Convey("Given a loader that blocks only for one type", t, func() {
		release := make(chan struct{})
		defer close(release)
		reg := registry.New(registry.LoaderFunc(func(ctx context.Context, mt types.ModelType) (*registry.ModelPair, error) {
			if mt == types.ModelLinear {
				<-release
			}
			return newPair(), nil
		}))

		Convey("When the blocked type is loading", func() {
			go func() { _, _ = reg.Resolve(context.Background(), "linear") }()
			time.Sleep(10 * time.Millisecond)

			ctx, cancel := context.WithTimeout(context.Background(), time.Second)
			defer cancel()
			p, err := reg.Resolve(ctx, "gboost")

			Convey("Then another type still resolves", func() {
				So(err, ShouldBeNil)
				So(p.Type, ShouldEqual, types.ModelGBoost)
			})
		})
	})

	Convey("Given a loader that fails once", t, func() {
		var calls atomic.Int64
		reg := registry.New(registry.LoaderFunc(func(ctx context.Context, mt types.ModelType) (*registry.ModelPair, error) {
			if calls.Add(1) == 1 {
				return nil, errors.New("artifact missing")
			}
			return newPair(), nil
		}))

		Convey("When resolving twice", func() {
			_, err1 := reg.Resolve(context.Background(), "gboost")
			p, err2 := reg.Resolve(context.Background(), "gboost")

			Convey("Then the failure is a model load error and is not cached", func() {
				So(errors.Is(err1, types.ErrModelLoad), ShouldBeTrue)
				So(err1.Error(), ShouldContainSubstring, "artifact missing")
				So(err2, ShouldBeNil)
				So(p, ShouldNotBeNil)
				So(reg.Loads(), ShouldEqual, 2)
			})
		})
	})

	Convey("Given a loader returning an incomplete pair", t, func() {
		reg := registry.New(registry.LoaderFunc(func(ctx context.Context, mt types.ModelType) (*registry.ModelPair, error) {
			return &registry.ModelPair{Win: constClassifier(0.5)}, nil
		}))

		Convey("When resolving", func() {
			_, err := reg.Resolve(context.Background(), "rf")

			Convey("Then a model load error is returned", func() {
				So(errors.Is(err, types.ErrModelLoad), ShouldBeTrue)
				So(reg.Loaded(), ShouldBeEmpty)
			})
		})
	})

	Convey("Given any registry", t, func() {
		var calls atomic.Int64
		reg := registry.New(registry.LoaderFunc(func(ctx context.Context, mt types.ModelType) (*registry.ModelPair, error) {
			calls.Add(1)
			return newPair(), nil
		}))

		Convey("When resolving an unknown model type", func() {
			_, err := reg.Resolve(context.Background(), "xgboost")

			Convey("Then a validation error is returned without loading", func() {
				So(errors.Is(err, types.ErrValidation), ShouldBeTrue)
				So(calls.Load(), ShouldEqual, 0)
			})
		})

		Convey("When preloading every type", func() {
			err := reg.Preload(context.Background(), types.ModelTypes()...)

			Convey("Then all types are cached once", func() {
				So(err, ShouldBeNil)
				So(reg.Loaded(), ShouldResemble, types.ModelTypes())
				So(calls.Load(), ShouldEqual, 3)
			})
		})

		Convey("When peeking before and after a resolve", func() {
			_, before := reg.Peek(types.ModelGBoost)
			_, err := reg.Resolve(context.Background(), "GBoost")
			So(err, ShouldBeNil)
			pair, after := reg.Peek(types.ModelGBoost)

			Convey("Then only the resolved pair is visible and peeking never loads", func() {
				So(before, ShouldBeFalse)
				So(after, ShouldBeTrue)
				So(pair.Type, ShouldEqual, types.ModelGBoost)
				So(calls.Load(), ShouldEqual, 1)
			})
		})
	})
}
