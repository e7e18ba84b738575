package ai

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

type stubProvider struct {
	name  string
	text  string
	err   error
	calls int
	model string
}

func (p *stubProvider) Generate(ctx context.Context, model string, prompt string, auxContext string) (string, error) {
	p.calls++
	p.model = model
	if p.err != nil {
		return "", p.err
	}
	return p.text, nil
}

func (p *stubProvider) Name() string { return p.name }

func TestAskPrimary(t *testing.T) {
	primary := &stubProvider{name: "gemini", text: "take paracetamol"}
	fallback := &stubProvider{name: "openai", text: "unused"}
	svc := NewService(primary, fallback)

	answer, err := svc.Ask(context.Background(), "gemini-2.0-flash", "advice?", "")
	require.NoError(t, err)
	require.Equal(t, "take paracetamol", answer.Text)
	require.Equal(t, "gemini", answer.Model)
	require.Equal(t, "gemini-2.0-flash", primary.model)
	require.Zero(t, fallback.calls)
}

func TestAskFallsBack(t *testing.T) {
	primary := &stubProvider{name: "gemini", err: errors.New("quota exceeded")}
	fallback := &stubProvider{name: "openai", text: "rest and hydrate"}
	svc := NewService(primary, fallback)

	answer, err := svc.Ask(context.Background(), "gemini-2.0-flash", "advice?", "")
	require.NoError(t, err)
	require.Equal(t, "rest and hydrate", answer.Text)
	require.Equal(t, "openai", answer.Model)
	// The model override targets the primary; the fallback runs on its default.
	require.Equal(t, "", fallback.model)
}

func TestAskBothFail(t *testing.T) {
	primary := &stubProvider{name: "gemini", err: errors.New("quota exceeded")}
	fallback := &stubProvider{name: "openai", err: errors.New("timeout")}
	svc := NewService(primary, fallback)

	_, err := svc.Ask(context.Background(), "", "advice?", "")
	require.Error(t, err)
	require.Contains(t, err.Error(), "gemini")
	require.Contains(t, err.Error(), "openai")
}

func TestAskNoFallback(t *testing.T) {
	primary := &stubProvider{name: "gemini", err: errors.New("quota exceeded")}
	svc := NewService(primary, nil)

	_, err := svc.Ask(context.Background(), "", "advice?", "")
	require.Error(t, err)
}

func TestAskNoProvider(t *testing.T) {
	svc := NewService(nil, nil)
	_, err := svc.Ask(context.Background(), "", "advice?", "")
	require.Error(t, err)
}
