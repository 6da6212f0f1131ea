package data

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/magicbot/magicbot/internal/biz/domain"
	"github.com/magicbot/magicbot/internal/infra/signalcli"
)

func TestConvertEnvelope(t *testing.T) {
	env, err := signalcli.ParseEnvelope([]byte(`{"envelope":{"source":"+1","sourceNumber":"+1","sourceUuid":"u1","sourceName":"Alice","timestamp":1,"dataMessage":{"message":"  hello  ","groupInfo":{"groupId":"g1","groupName":"Test","type":"DELIVER"},"quote":{"authorUuid":"u2"}}},"account":"+9"}`))
	require.NoError(t, err)

	ev := ConvertEnvelope(env)
	assert.True(t, ev.IsGroupEvent())
	assert.False(t, ev.IsGroupUpdate())
	assert.Equal(t, "u1", ev.SenderID())
	assert.Equal(t, "hello", ev.Text())
	assert.Equal(t, "g1", ev.GroupID)
	assert.Equal(t, "u2", ev.QuoteAuthor)
	assert.Equal(t, "+9", ev.Account)
}

func TestConvertEnvelope_NoDataMessage(t *testing.T) {
	env, err := signalcli.ParseEnvelope([]byte(`{"envelope":{"source":"+1","receiptMessage":{}}}`))
	require.NoError(t, err)

	ev := ConvertEnvelope(env)
	assert.False(t, ev.HasDataMessage)
	assert.False(t, ev.IsGroupEvent())
}

func TestConvertEnvelope_GroupUpdate(t *testing.T) {
	env, err := signalcli.ParseEnvelope([]byte(`{"envelope":{"sourceUuid":"u1","dataMessage":{"groupInfo":{"groupId":"g1","type":"UPDATE"}}}}`))
	require.NoError(t, err)

	ev := ConvertEnvelope(env)
	assert.True(t, ev.IsGroupEvent())
	assert.True(t, ev.IsGroupUpdate())
	assert.Empty(t, ev.Text())
}

func TestEventSource_SkipsMalformedLines(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("shell scripts are not supported on windows")
	}
	bin := filepath.Join(t.TempDir(), "signal-cli")
	script := "#!/bin/sh\n" +
		`echo '{"envelope":{"sourceUuid":"u1","dataMessage":{"message":"a","groupInfo":{"groupId":"g1","type":"DELIVER"}}}}'` + "\n" +
		"echo 'garbage'\n" +
		`echo '{"envelope":{"sourceUuid":"u2","dataMessage":{"message":"b","groupInfo":{"groupId":"g1","type":"DELIVER"}}}}'` + "\n"
	require.NoError(t, os.WriteFile(bin, []byte(script), 0755))

	src := NewEventSource(signalcli.NewClient(bin, "", "+9"))
	stream, err := src.Open(context.Background())
	require.NoError(t, err)

	var senders []string
	for ev := range stream.Events() {
		senders = append(senders, ev.SenderID())
	}
	assert.Equal(t, []string{"u1", "u2"}, senders)

	err = stream.Wait()
	assert.True(t, errors.Is(err, domain.ErrStreamClosed), "unexpected error: %v", err)
}

func TestConvertGroup(t *testing.T) {
	g := convertGroup(signalcli.Group{
		ID:      "g1",
		Name:    "Test",
		Admins:  []signalcli.Identity{{UUID: "u1", Number: "+1"}},
		Members: []signalcli.Identity{{UUID: "u1", Number: "+1"}, {Number: "+2"}},
	})
	assert.Equal(t, "u1", g.Admins[0].ID)
	assert.Equal(t, "+2", g.Members[1].ID)
	assert.Equal(t, "+1", g.Members[0].Number)
}
