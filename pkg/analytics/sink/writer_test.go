package sink_test

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/boyanghu/battleship-sub001/pkg/analytics"
	"github.com/boyanghu/battleship-sub001/pkg/analytics/sink"
)

func TestWriterSink_OneLinePerEvent(t *testing.T) {
	var buf bytes.Buffer
	ws := sink.NewWriterSink(&buf)
	ctx := context.Background()

	require.NoError(t, ws.Deliver(ctx, newEvent("e1", analytics.ActionPress)))
	require.NoError(t, ws.Deliver(ctx, newEvent("e2", analytics.ActionSuccess)))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 2)

	var first map[string]any
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &first))
	assert.Equal(t, "e1", first["id"])
	assert.Equal(t, "press", first["action"])

	var second map[string]any
	require.NoError(t, json.Unmarshal([]byte(lines[1]), &second))
	assert.Equal(t, "e2", second["id"])
}

func TestWriterSink_Closed(t *testing.T) {
	var buf bytes.Buffer
	ws := sink.NewWriterSink(&buf)
	require.NoError(t, ws.Close())

	err := ws.Deliver(context.Background(), newEvent("e1", analytics.ActionPress))
	assert.ErrorIs(t, err, sink.ErrSinkClosed)
	assert.Zero(t, buf.Len())
}
