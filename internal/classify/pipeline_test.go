package classify

import (
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/quell-mod/quell-go/internal/heuristic"
	"github.com/quell-mod/quell-go/internal/policy"
	"github.com/quell-mod/quell-go/internal/submission"
)

type fakeRemote struct {
	fn func(ctx context.Context, sub submission.Submission) (*RemotePayload, error)
}

func (f *fakeRemote) Name() string { return "fake" }

func (f *fakeRemote) Classify(ctx context.Context, sub submission.Submission) (*RemotePayload, error) {
	return f.fn(ctx, sub)
}

func testLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

func testSub() submission.Submission {
	return submission.Submission{
		Content:     "A perfectly ordinary comment about the article.",
		AuthorName:  "Alice Brown",
		AuthorEmail: "alice@example.com",
		OriginIP:    "203.0.113.5",
		SubmittedAt: time.Unix(1700000000, 0),
	}
}

func newTestPipeline(remote Remote, cfg Config) *Pipeline {
	return NewPipeline(heuristic.NewScorer(heuristic.DefaultConfig()), remote, cfg, testLogger())
}

func TestClassifyFallbackOnRemoteError(t *testing.T) {
	remote := &fakeRemote{fn: func(context.Context, submission.Submission) (*RemotePayload, error) {
		return nil, errors.New("connection refused")
	}}
	p := newTestPipeline(remote, Config{Sensitivity: 50})

	out := p.Classify(context.Background(), testSub())
	if out.Source != SourceLocalFallback {
		t.Fatalf("expected local fallback, got %s", out.Source)
	}
	if out.IsSpam {
		t.Fatal("benign submission classified as spam")
	}
	if len(out.Reasons) == 0 {
		t.Fatal("expected reasons to be populated")
	}
}

func TestClassifyFallbackOnRemoteTimeout(t *testing.T) {
	remote := &fakeRemote{fn: func(ctx context.Context, _ submission.Submission) (*RemotePayload, error) {
		<-ctx.Done()
		return nil, ctx.Err()
	}}
	p := newTestPipeline(remote, Config{Sensitivity: 50, RemoteTimeout: 50 * time.Millisecond})

	start := time.Now()
	out := p.Classify(context.Background(), testSub())
	if elapsed := time.Since(start); elapsed > time.Second {
		t.Fatalf("timeout not bounded, took %v", elapsed)
	}
	if out.Source != SourceLocalFallback {
		t.Fatalf("expected local fallback after timeout, got %s", out.Source)
	}
}

func TestClassifyTrustsRemoteDecision(t *testing.T) {
	isSpam := true
	conf := 0.92
	remote := &fakeRemote{fn: func(context.Context, submission.Submission) (*RemotePayload, error) {
		return &RemotePayload{
			IsSpam:     &isSpam,
			Confidence: &conf,
			RiskLevel:  "high",
			Reasons:    []string{"known spam template"},
		}, nil
	}}
	p := newTestPipeline(remote, Config{Sensitivity: 50})

	out := p.Classify(context.Background(), testSub())
	if out.Source != SourceRemote {
		t.Fatalf("expected remote source, got %s", out.Source)
	}
	if !out.IsSpam || out.Confidence != 0.92 {
		t.Fatalf("remote decision not trusted: %+v", out.Decision)
	}
	if out.RiskLevel != policy.RiskHigh {
		t.Fatalf("expected high risk, got %s", out.RiskLevel)
	}
	if out.Category != policy.CategorySpam {
		t.Fatalf("expected spam category, got %s", out.Category)
	}
}

func TestClassifyRemoteRawScoreUsesPolicy(t *testing.T) {
	raw := 70.0
	remote := &fakeRemote{fn: func(context.Context, submission.Submission) (*RemotePayload, error) {
		return &RemotePayload{RawScore: &raw, Reasons: []string{"link farm detected"}}, nil
	}}
	p := newTestPipeline(remote, Config{Sensitivity: 50})

	out := p.Classify(context.Background(), testSub())
	if out.Source != SourceRemote {
		t.Fatalf("expected remote source, got %s", out.Source)
	}
	if !out.IsSpam {
		t.Fatal("expected raw score 70 over threshold 50 to be spam")
	}
	if out.ThresholdUsed != 50 || out.SensitivityUsed != 50 {
		t.Fatalf("policy settings not recorded: %+v", out.Decision)
	}

	// The same remote score under a maximum threshold is ham.
	p = newTestPipeline(remote, Config{Sensitivity: 100})
	if out := p.Classify(context.Background(), testSub()); out.IsSpam {
		t.Fatal("expected raw score 70 under threshold 75 to be ham")
	}
}

func TestClassifyFallbackOnUnusableRemotePayload(t *testing.T) {
	spam := true
	payloads := []*RemotePayload{
		nil,
		{},
		{Reasons: []string{"inconclusive"}},
		{IsSpam: &spam}, // decision without confidence
	}
	for _, payload := range payloads {
		remote := &fakeRemote{fn: func(context.Context, submission.Submission) (*RemotePayload, error) {
			return payload, nil
		}}
		p := newTestPipeline(remote, Config{Sensitivity: 50})

		out := p.Classify(context.Background(), testSub())
		if out.Source != SourceLocalFallback {
			t.Fatalf("payload %+v: expected local fallback, got %s", payload, out.Source)
		}
		if out.IsSpam {
			t.Fatalf("payload %+v: benign submission classified as spam", payload)
		}
	}
}

func TestClassifyRemoteDeriveRiskWhenTagMissing(t *testing.T) {
	isSpam := true
	conf := 0.95
	remote := &fakeRemote{fn: func(context.Context, submission.Submission) (*RemotePayload, error) {
		return &RemotePayload{IsSpam: &isSpam, Confidence: &conf}, nil
	}}
	p := newTestPipeline(remote, Config{Sensitivity: 50})

	out := p.Classify(context.Background(), testSub())
	if out.RiskLevel != policy.RiskHigh {
		t.Fatalf("expected risk derived from confidence, got %s", out.RiskLevel)
	}
	if len(out.Reasons) != 1 || out.Reasons[0] != "no indicators detected" {
		t.Fatalf("expected default reason, got %v", out.Reasons)
	}
}

func TestClassifySkipsRegisteredAuthors(t *testing.T) {
	called := false
	remote := &fakeRemote{fn: func(context.Context, submission.Submission) (*RemotePayload, error) {
		called = true
		return nil, errors.New("should not be called")
	}}
	p := newTestPipeline(remote, Config{Sensitivity: 50, SkipRegistered: true})

	sub := testSub()
	sub.Registered = true
	out := p.Classify(context.Background(), sub)
	if called {
		t.Fatal("remote classifier consulted for exempt author")
	}
	if out.IsSpam {
		t.Fatal("exempt author classified as spam")
	}
	if out.Source != SourceLocalFallback {
		t.Fatalf("expected local source for exempt result, got %s", out.Source)
	}
}

func TestClassifyNoRemoteConfigured(t *testing.T) {
	p := newTestPipeline(nil, Config{Sensitivity: 50})

	sub := testSub()
	sub.Content = "BUY VIAGRA NOW!!! HTTP://X.COM HTTP://Y.COM HTTP://Z.COM HTTP://W.COM"
	out := p.Classify(context.Background(), sub)
	if out.Source != SourceLocalFallback {
		t.Fatalf("expected local fallback, got %s", out.Source)
	}
	if !out.IsSpam {
		t.Fatalf("expected spam verdict, got %+v", out)
	}
	if out.RiskLevel != policy.RiskMedium {
		t.Fatalf("expected medium risk at raw score 70, got %s", out.RiskLevel)
	}
}
