package entity

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeChangeEventInsert(t *testing.T) {
	body := `{"type":"INSERT","table":"dados_cliente","record":{"id":10,"nomewpp":"Ana","STATUS":"new"},"old_record":null}`

	ev, err := DecodeChangeEvent([]byte(body))
	require.NoError(t, err)

	assert.Equal(t, ChangeInsert, ev.Kind)
	assert.Equal(t, "dados_cliente", ev.Table)
	require.NotNil(t, ev.Record)
	assert.Equal(t, "Ana", ev.Record.NameValue())

	id, ok := ev.LeadID()
	assert.True(t, ok)
	assert.Equal(t, int64(10), id)
}

// TestDecodeChangeEventRealtimeShape - aceita o formato {eventType, new, old}
func TestDecodeChangeEventRealtimeShape(t *testing.T) {
	ev, err := DecodeChangeEvent([]byte(`{"eventType":"delete","new":{},"old":{"id":5}}`))
	require.NoError(t, err)

	assert.Equal(t, ChangeDelete, ev.Kind)
	assert.Nil(t, ev.Record)
	assert.Equal(t, int64(5), ev.OldID)
}

func TestDecodeChangeEventRejectsMalformed(t *testing.T) {
	tests := []struct {
		name string
		body string
		want error
	}{
		{"unknown kind", `{"type":"TRUNCATE"}`, ErrUnknownChangeKind},
		{"update without record", `{"type":"UPDATE","record":null}`, ErrMissingLeadID},
		{"insert without id", `{"type":"INSERT","record":{"nomewpp":"x"}}`, ErrMissingLeadID},
		{"delete without id", `{"type":"DELETE","old_record":{}}`, ErrMissingLeadID},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := DecodeChangeEvent([]byte(tt.body))
			assert.ErrorIs(t, err, tt.want)
		})
	}

	_, err := DecodeChangeEvent([]byte(`not json`))
	assert.Error(t, err)
}

func TestChangeEventResyncIsValid(t *testing.T) {
	assert.NoError(t, ChangeEvent{Kind: ChangeResync}.Validate())
}

// TestDecodeChangeEventTruncatedPayload - linha grande demais chega só com o id
func TestDecodeChangeEventTruncatedPayload(t *testing.T) {
	body := `{"type":"UPDATE","table":"dados_cliente","record":{"id":42},"old_record":{"id":42},"truncated":true}`

	ev, err := DecodeChangeEvent([]byte(body))
	require.NoError(t, err)

	assert.Equal(t, ChangeUpdate, ev.Kind)
	assert.True(t, ev.Partial)
	require.NotNil(t, ev.Record)
	assert.Equal(t, int64(42), ev.Record.ID)
	assert.Nil(t, ev.Record.Subject)
}

func TestDecodeChangeEventFullPayloadIsNotPartial(t *testing.T) {
	ev, err := DecodeChangeEvent([]byte(`{"type":"INSERT","record":{"id":1}}`))
	require.NoError(t, err)
	assert.False(t, ev.Partial)
}
