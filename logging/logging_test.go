package logging

import (
	"testing"

	"go.viam.com/test"
)

func TestLevelStringRoundTrip(t *testing.T) {
	for _, lvl := range []Level{Debug, Info, Warn, Error} {
		parsed, err := LevelFromString(lvl.String())
		test.That(t, err, test.ShouldBeNil)
		test.That(t, parsed, test.ShouldEqual, lvl)
	}
}

func TestLevelFromStringAcceptsWarningAlias(t *testing.T) {
	lvl, err := LevelFromString("WARNING")
	test.That(t, err, test.ShouldBeNil)
	test.That(t, lvl, test.ShouldEqual, Warn)
}

func TestLevelFromStringRejectsUnknown(t *testing.T) {
	_, err := LevelFromString("verbose")
	test.That(t, err, test.ShouldNotBeNil)
}

func TestNewTestLoggerLogsWithoutPanic(t *testing.T) {
	l := NewTest()
	l.With("petal", "p1").Infow("planning started", "stage", "retract")
	test.That(t, l.Sync(), test.ShouldBeNil)
}
