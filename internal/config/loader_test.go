package config_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/okian/settle/internal/config"
	. "github.com/smartystreets/goconvey/convey"
)

func TestLoad_Defaults(t *testing.T) {
	Convey("Given no file and no env overrides", t, func() {
		cfg, err := config.Load(context.Background())

		Convey("Then loading succeeds with defaults", func() {
			So(err, ShouldBeNil)
			So(cfg.Addr, ShouldEqual, ":9090")
			So(cfg.AbsentPolicy, ShouldEqual, "zero")
			So(cfg.CutoffSeconds, ShouldEqual, 7200)
			So(cfg.RevealWindowRounds, ShouldEqual, 2)
			So(cfg.WorkerCount, ShouldBeGreaterThan, 0)
		})
	})
}

func TestLoad_EnvOverrides(t *testing.T) {
	Convey("Given env overrides with the SETTLE_ prefix", t, func() {
		t.Setenv("SETTLE_ADDR", ":7070")
		t.Setenv("SETTLE_CUTOFF_SECONDS", "60")
		t.Setenv("SETTLE_ABSENT_POLICY", "floor")

		cfg, err := config.Load(context.Background())

		Convey("Then they win over defaults", func() {
			So(err, ShouldBeNil)
			So(cfg.Addr, ShouldEqual, ":7070")
			So(cfg.CutoffSeconds, ShouldEqual, 60)
			So(cfg.AbsentPolicy, ShouldEqual, "floor")
		})
	})
}

func TestLoad_File(t *testing.T) {
	Convey("Given a YAML config file", t, func() {
		dir := t.TempDir()
		path := filepath.Join(dir, "settle.yaml")
		yaml := "addr: \":6060\"\nworker_count: 3\n"
		So(os.WriteFile(path, []byte(yaml), 0o600), ShouldBeNil)
		t.Setenv("SETTLE_CONFIG", path)

		Convey("Then its values layer over defaults", func() {
			cfg, err := config.Load(context.Background())
			So(err, ShouldBeNil)
			So(cfg.Addr, ShouldEqual, ":6060")
			So(cfg.WorkerCount, ShouldEqual, 3)
			So(cfg.CutoffSeconds, ShouldEqual, 7200)
		})

		Convey("And env still wins over the file", func() {
			t.Setenv("SETTLE_ADDR", ":5050")
			cfg, err := config.Load(context.Background())
			So(err, ShouldBeNil)
			So(cfg.Addr, ShouldEqual, ":5050")
		})
	})
}

func TestLoad_Validation(t *testing.T) {
	Convey("Given invalid values", t, func() {
		Convey("An unknown absent policy is refused", func() {
			t.Setenv("SETTLE_ABSENT_POLICY", "lenient")
			_, err := config.Load(context.Background())
			So(errors.Is(err, config.ErrInvalidConfig), ShouldBeTrue)
		})

		Convey("A negative cutoff is refused", func() {
			t.Setenv("SETTLE_CUTOFF_SECONDS", "-5")
			_, err := config.Load(context.Background())
			So(errors.Is(err, config.ErrInvalidConfig), ShouldBeTrue)
		})

		Convey("A missing config file is an error, not a silent skip", func() {
			t.Setenv("SETTLE_CONFIG", "/nonexistent/settle.yaml")
			_, err := config.Load(context.Background())
			So(errors.Is(err, config.ErrLoadConfig), ShouldBeTrue)
		})
	})
}
