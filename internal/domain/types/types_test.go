package types_test

import (
	"context"
	"errors"
	"fmt"
	"testing"

	types "github.com/hay5612/scorebot/internal/domain/types"
	. "github.com/smartystreets/goconvey/convey"
)

func TestNormalizeTeam(t *testing.T) {
	Convey("Given team codes in different forms", t, func() {
		Convey("When normalizing them", func() {
			Convey("Then case and surrounding whitespace are ignored", func() {
				So(types.NormalizeTeam("kc"), ShouldEqual, "KC")
				So(types.NormalizeTeam(" Kc\t"), ShouldEqual, "KC")
				So(types.NormalizeTeam("BUF"), ShouldEqual, "BUF")
			})

			Convey("And an empty code stays empty", func() {
				So(types.NormalizeTeam("   "), ShouldEqual, "")
			})
		})
	})
}

func TestSeasonRange(t *testing.T) {
	Convey("Given season bounds", t, func() {
		Convey("When they are reversed", func() {
			r := types.NewSeasonRange(2022, 2018)

			Convey("Then the range is sorted", func() {
				So(r, ShouldResemble, types.SeasonRange{Start: 2018, End: 2022})
				So(r.Single(), ShouldBeFalse)
				So(r.Contains(2018), ShouldBeTrue)
				So(r.Contains(2022), ShouldBeTrue)
				So(r.Contains(2023), ShouldBeFalse)
				So(r.String(), ShouldEqual, "seasons 2018-2022")
			})
		})

		Convey("When start equals end", func() {
			r := types.NewSeasonRange(2023, 2023)

			Convey("Then it is a single season", func() {
				So(r.Single(), ShouldBeTrue)
				So(r.String(), ShouldEqual, "season 2023")
			})
		})
	})
}

func TestParseModelType(t *testing.T) {
	Convey("Given model type names", t, func() {
		Convey("When they are recognized in any case", func() {
			for raw, want := range map[string]types.ModelType{
				"linear": types.ModelLinear,
				"GBOOST": types.ModelGBoost,
				" rf ":   types.ModelRF,
			} {
				mt, err := types.ParseModelType(raw)
				So(err, ShouldBeNil)
				So(mt, ShouldEqual, want)
			}
		})

		Convey("When the name is unknown", func() {
			_, err := types.ParseModelType("xgboost")

			Convey("Then a validation error is returned", func() {
				So(errors.Is(err, types.ErrValidation), ShouldBeTrue)
				So(err.Error(), ShouldContainSubstring, "xgboost")

				var verr *types.ValidationError
				So(errors.As(err, &verr), ShouldBeTrue)
				So(verr.Field, ShouldEqual, "model_type")
			})
		})
	})
}

func TestFailureKinds(t *testing.T) {
	Convey("Given typed failures", t, func() {
		Convey("When a not-found error is wrapped", func() {
			err := fmt.Errorf("lookup: %w", &types.NotFoundError{
				Team:  "XYZ",
				Range: types.NewSeasonRange(2018, 2020),
			})

			Convey("Then it matches ErrNotFound and names the team and range", func() {
				So(errors.Is(err, types.ErrNotFound), ShouldBeTrue)
				So(errors.Is(err, types.ErrValidation), ShouldBeFalse)
				So(err.Error(), ShouldContainSubstring, "XYZ")
				So(err.Error(), ShouldContainSubstring, "2018-2020")
			})
		})

		Convey("When a model load error wraps a cause", func() {
			cause := errors.New("file missing")
			err := &types.ModelLoadError{ModelType: types.ModelRF, Err: cause}

			Convey("Then both the kind and the cause are reachable", func() {
				So(errors.Is(err, types.ErrModelLoad), ShouldBeTrue)
				So(errors.Is(err, cause), ShouldBeTrue)
				So(err.Error(), ShouldContainSubstring, "rf")
			})
		})

		Convey("When failures are classified", func() {
			Convey("Then each kind maps to its label", func() {
				So(types.FailureKind(nil), ShouldEqual, types.FailureNone)
				So(types.FailureKind(&types.ValidationError{Field: "season", Reason: "out of range"}), ShouldEqual, types.FailureValidation)
				So(types.FailureKind(fmt.Errorf("x: %w", &types.NotFoundError{Team: "KC"})), ShouldEqual, types.FailureNotFound)
				So(types.FailureKind(&types.ModelLoadError{ModelType: types.ModelLinear, Err: errors.New("x")}), ShouldEqual, types.FailureModelLoad)
				So(types.FailureKind(context.DeadlineExceeded), ShouldEqual, types.FailureCanceled)
				So(types.FailureKind(errors.New("boom")), ShouldEqual, types.FailureInternal)
			})
		})
	})
}
