package printer

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/hay-kot/criterio"
	"github.com/stretchr/testify/assert"

	"github.com/hay-kot/shoppulse/internal/core/feed"
)

func TestHexColor(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{in: "#10b981", want: "\033[38;2;16;185;129m"},
		{in: "#ffffff", want: "\033[38;2;255;255;255m"},
		{in: "10b981", want: ColorGray},
		{in: "#xyzxyz", want: ColorGray},
		{in: "", want: ColorGray},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, hexColor(tt.in))
		})
	}
}

func TestPrinter_Activity(t *testing.T) {
	var buf bytes.Buffer
	p := New(&buf)

	act := feed.NewActivity(42, feed.KindPaymentReceived, "Emily Brown")
	p.Activity(act, time.Date(2025, 1, 1, 14, 5, 9, 0, time.UTC))

	out := buf.String()
	assert.Contains(t, out, "14:05:09")
	assert.Contains(t, out, "#42")
	assert.Contains(t, out, act.Message)
	assert.Contains(t, out, "Emily Brown")
	assert.Contains(t, out, hexColor(act.Kind.Hex()))
}

func TestPrinter_FatalError(t *testing.T) {
	t.Run("plain error", func(t *testing.T) {
		var buf bytes.Buffer
		New(&buf).FatalError(errors.New("boom"))

		assert.Contains(t, buf.String(), "╭ Error")
		assert.Contains(t, buf.String(), "boom")
	})

	t.Run("field errors", func(t *testing.T) {
		var buf bytes.Buffer
		fieldErrs := criterio.FieldErrors{
			{Field: "feed.capacity", Err: errors.New("must be at least 1")},
		}
		New(&buf).FatalError(fmt.Errorf("load config: %w", fieldErrs))

		out := buf.String()
		assert.Contains(t, out, "╭ Validation Error")
		assert.Contains(t, out, "load config")
		assert.Contains(t, out, "feed.capacity: ")
		assert.Contains(t, out, "must be at least 1")
	})

	t.Run("nil error", func(t *testing.T) {
		var buf bytes.Buffer
		New(&buf).FatalError(nil)
		assert.Empty(t, buf.String())
	})
}

func TestCtx(t *testing.T) {
	var buf bytes.Buffer
	p := New(&buf)

	ctx := NewContext(context.Background(), p)
	assert.Same(t, p, Ctx(ctx))
	assert.NotNil(t, Ctx(context.Background()))
}

func TestPrinter_Items(t *testing.T) {
	var buf bytes.Buffer
	p := New(&buf)

	p.CheckItem("Config valid", "")
	p.WarnItem("feed", "tick interval below 1s")
	p.FailItem("redis", "connection refused")

	out := buf.String()
	assert.Contains(t, out, Check+ColorReset+" Config valid\n")
	assert.Contains(t, out, "feed: tick interval below 1s")
	assert.Contains(t, out, Cross+ColorReset+" redis: connection refused")
}

func TestPrinter_Warnf(t *testing.T) {
	var buf bytes.Buffer
	New(&buf).Warnf("%d warning(s)", 2)

	assert.Equal(t, ColorYellow+Dot+" 2 warning(s)"+ColorReset+"\n", buf.String())
}
