package errs

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCustomError_ErrorString(t *testing.T) {
	err := New("fetch availability").
		Kind(KindTransport).
		Arg("provider", 7).
		Arg("month", 3).
		Wrap(errors.New("dial tcp: timeout"))

	assert.Equal(t,
		"{msg: fetch availability, kind: transport, args: map[month:3 provider:7], wrappedError: {dial tcp: timeout}}",
		err.Error())
}

func TestCustomError_NestedWrap(t *testing.T) {
	inner := New("decode").Kind(KindTransport)
	outer := New("fetch").Wrap(inner)

	assert.Equal(t, "{msg: fetch, wrappedError: {msg: decode, kind: transport}}", outer.Error())
	assert.ErrorIs(t, outer, inner)
}

func TestKindOf(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want Kind
	}{
		{"nil", nil, KindInternal},
		{"plain", errors.New("boom"), KindInternal},
		{"input", Input("no provider specified"), KindInput},
		{"nested", New("outer").Wrap(New("inner").Kind(KindServer)), KindServer},
		{"fmt wrapped", fmt.Errorf("ctx: %w", New("x").Kind(KindTransport)), KindTransport},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, KindOf(tt.err))
		})
	}
}

func TestUserMessage(t *testing.T) {
	assert.Empty(t, UserMessage(nil))
	assert.Equal(t, "no provider specified", UserMessage(Input("no provider specified")))

	server := New("create appointment").Wrap(New("backend").Kind(KindServer).User("Horario ocupado"))
	assert.Equal(t, "Horario ocupado", UserMessage(server))

	require.Equal(t, fallbackServer, UserMessage(New("x").Kind(KindServer)))
	require.Equal(t, fallbackTransport, UserMessage(New("x").Kind(KindTransport)))
	require.Equal(t, fallbackInternal, UserMessage(errors.New("plain")))
}
