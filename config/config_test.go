package config

import (
	"os"
	"testing"
	"time"

	"github.com/ONSdigital/dp-glify-layer/partition"
	. "github.com/smartystreets/goconvey/convey"
)

func TestGet(t *testing.T) {
	Convey("Given environment overrides", t, func() {
		cfg = nil
		os.Setenv("NUM_WORKERS", "3")
		os.Setenv("MALFORMED_FEATURE_POLICY", "skip")
		defer os.Unsetenv("NUM_WORKERS")
		defer os.Unsetenv("MALFORMED_FEATURE_POLICY")

		c, err := Get()

		So(err, ShouldBeNil)
		So(c.BindAddr, ShouldEqual, ":23600")
		So(c.ShutdownTimeout, ShouldEqual, 5*time.Second)
		So(c.NumWorkers, ShouldEqual, 3)
		So(c.MalformedFeaturePolicy, ShouldEqual, partition.Skip)

		opts := c.SchedulerOptions()
		So(opts.Workers, ShouldEqual, 3)
		So(opts.Timeout, ShouldEqual, 30*time.Second)

		Convey("Later calls return the same configuration", func() {
			again, err := Get()
			So(err, ShouldBeNil)
			So(again, ShouldPointTo, c)
		})
	})

	Convey("An unknown policy is rejected", t, func() {
		cfg = nil
		os.Setenv("MALFORMED_FEATURE_POLICY", "sometimes")
		defer os.Unsetenv("MALFORMED_FEATURE_POLICY")

		_, err := Get()
		So(err, ShouldNotBeNil)
		cfg = nil
	})
}
