//
//  Copyright © the Cedrus authors. All rights reserved.
//

package logging

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap/zapcore"
)

func TestGetLoggerReturnsSameInstance(t *testing.T) {
	resetForTesting()

	a := GetLogger("authorizer")
	b := GetLogger("authorizer")
	assert.Same(t, a, b)

	c := GetLogger("parser")
	assert.NotSame(t, a, c)
}

func TestUpdateLogLevels(t *testing.T) {
	resetForTesting()

	l := GetLogger("authorizer")
	assert.False(t, l.IsDebugEnabled())

	assert.NoError(t, UpdateLogLevels("authorizer:debug"))
	assert.True(t, l.IsDebugEnabled())

	// default applies to modules without an explicit level
	other := GetLogger("entities")
	assert.NoError(t, UpdateLogLevels(".:error"))
	assert.Equal(t, zapcore.ErrorLevel, other.level)
	assert.Equal(t, zapcore.ErrorLevel, l.level)

	// whitespace tolerated, malformed entries skipped
	assert.NoError(t, UpdateLogLevels(" parser : debug ; bogus "))
	assert.True(t, GetLogger("parser").IsDebugEnabled())
}

func TestLoggerWritesToConfiguredWriter(t *testing.T) {
	resetForTesting()

	var buf bytes.Buffer
	l := GetLogger("test")
	l.SetOut(&buf)
	l.Infof("hello %s", "world")

	assert.Contains(t, buf.String(), "hello world")
	assert.Contains(t, buf.String(), `"module":"test"`)
}
