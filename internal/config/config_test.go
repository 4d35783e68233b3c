package config_test

import (
	"errors"
	"runtime"
	"testing"

	"github.com/fausterrex/gradegoal/internal/config"
	"github.com/smartystreets/goconvey/convey"
)

func TestConfig_New(t *testing.T) {
	convey.Convey("Given a new config with default options", t, func() {
		cfg := config.New()

		convey.Convey("Then it should have sensible defaults", func() {
			convey.So(cfg.Addr, convey.ShouldEqual, ":9080")
			convey.So(cfg.LogLevel, convey.ShouldEqual, "info")
			convey.So(cfg.LogFormat, convey.ShouldEqual, "text")
			convey.So(cfg.EventQueueSize, convey.ShouldEqual, 10_000)
			convey.So(cfg.WorkerCount, convey.ShouldEqual, runtime.NumCPU())
			convey.So(cfg.DedupeSize, convey.ShouldEqual, 50_000)
			convey.So(cfg.ShardCount, convey.ShouldEqual, 16)
			convey.So(cfg.MaxSamplesPerCourse, convey.ShouldEqual, 512)
			convey.So(cfg.Timezone, convey.ShouldEqual, "UTC")
			convey.So(cfg.RateLimitRPS, convey.ShouldEqual, 200.0)
			convey.So(cfg.RateLimitBurst, convey.ShouldEqual, 400)
			convey.So(cfg.Validate(), convey.ShouldBeNil)
		})
	})
}

func TestConfig_Validate(t *testing.T) {
	convey.Convey("Given configs with one bad field", t, func() {
		cases := map[string]func(*config.Config){
			"empty addr":      func(c *config.Config) { c.Addr = "  " },
			"zero queue":      func(c *config.Config) { c.EventQueueSize = 0 },
			"negative worker": func(c *config.Config) { c.WorkerCount = -1 },
			"zero shards":     func(c *config.Config) { c.ShardCount = 0 },
			"negative rps":    func(c *config.Config) { c.RateLimitRPS = -1 },
			"negative burst":  func(c *config.Config) { c.RateLimitBurst = -5 },
			"log format":      func(c *config.Config) { c.LogFormat = "xml" },
			"timezone":        func(c *config.Config) { c.Timezone = "Mars/Olympus" },
		}

		for name, mutate := range cases {
			convey.Convey("Then "+name+" should be rejected", func() {
				cfg := config.New()
				mutate(cfg)

				err := cfg.Validate()

				convey.So(errors.Is(err, config.ErrInvalidConfig), convey.ShouldBeTrue)
			})
		}
	})

	convey.Convey("Given a config with a named timezone", t, func() {
		cfg := config.New()
		cfg.Timezone = "Asia/Manila"

		loc, err := cfg.Location()

		convey.So(err, convey.ShouldBeNil)
		convey.So(loc.String(), convey.ShouldEqual, "Asia/Manila")
	})
}
