// Package publish posts records to a reddit-shaped discussion target.
package publish

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"regexp"
	"unicode/utf8"

	"github.com/tidwall/gjson"

	"github.com/fivethreefive/legisync/internal/record"
	"github.com/fivethreefive/legisync/internal/throttle"
)

// MaxFlairTitleLength bounds bill titles used as flair text.
const MaxFlairTitleLength = 64

// Caller is the throttled transport.
type Caller interface {
	Call(ctx context.Context, method, endpoint string, payload url.Values) (*throttle.Response, error)
}

// Flair holds link flair template ids. Empty ids disable that flair.
type Flair struct {
	Bill       string `yaml:"bill"`
	VotePassed string `yaml:"votePassed"`
	VoteFailed string `yaml:"voteFailed"`
}

// Reddit publishes and amends self posts in one subreddit.
type Reddit struct {
	caller    Caller
	subreddit string
	renderer  Renderer
	flair     Flair
}

// Option configures Reddit.
type Option func(*Reddit)

// WithRenderer replaces PlainRenderer.
func WithRenderer(r Renderer) Option {
	return func(p *Reddit) {
		p.renderer = r
	}
}

// WithFlair sets flair templates.
func WithFlair(f Flair) Option {
	return func(p *Reddit) {
		p.flair = f
	}
}

// NewReddit creates a publisher posting to subreddit through caller.
func NewReddit(caller Caller, subreddit string, opts ...Option) *Reddit {
	p := &Reddit{
		caller:    caller,
		subreddit: subreddit,
		renderer:  PlainRenderer{},
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

var commentsPattern = regexp.MustCompile(`comments/([a-zA-Z0-9_]+)/`)

// Publish submits rec as a new post and returns its fullname.
func (p *Reddit) Publish(ctx context.Context, rec record.Record) (record.Ref, error) {
	form := url.Values{
		"api_type":    {"json"},
		"kind":        {"self"},
		"sr":          {p.subreddit},
		"title":       {truncate(p.renderer.Title(rec), MaxTitleLength)},
		"text":        {p.renderer.Body(rec)},
		"sendreplies": {"true"},
	}

	resp, err := p.caller.Call(ctx, http.MethodPost, "api/submit", form)
	if err != nil {
		return "", fmt.Errorf("submit %s: %w", rec.Key(), err)
	}
	body := gjson.ParseBytes(resp.Body)
	if err := apiErrors("api/submit", body); err != nil {
		return "", err
	}

	ref := record.Ref(body.Get("json.data.name").String())
	if ref == "" {
		if m := commentsPattern.FindSubmatch(resp.Body); m != nil {
			ref = record.Ref("t3_" + string(m[1]))
		}
	}
	if ref == "" {
		return "", fmt.Errorf("submit %s: %w", rec.Key(), ErrNoReference)
	}

	p.applyFlair(ctx, ref, rec)
	return ref, nil
}

// Amend replaces the text of the post ref with the current rendering of rec.
func (p *Reddit) Amend(ctx context.Context, ref record.Ref, rec record.Record) error {
	form := url.Values{
		"api_type": {"json"},
		"thing_id": {string(ref)},
		"text":     {p.renderer.Body(rec)},
	}

	resp, err := p.caller.Call(ctx, http.MethodPost, "api/editusertext", form)
	if err != nil {
		return fmt.Errorf("edit %s: %w", ref, err)
	}
	if err := apiErrors("api/editusertext", gjson.ParseBytes(resp.Body)); err != nil {
		return err
	}

	p.applyFlair(ctx, ref, rec)
	return nil
}

func apiErrors(endpoint string, body gjson.Result) error {
	errs := body.Get("json.errors")
	if !errs.IsArray() || len(errs.Array()) == 0 {
		return nil
	}
	apiErr := &APIError{Endpoint: endpoint}
	for _, e := range errs.Array() {
		// entries are [code, message, field]
		if e.IsArray() {
			apiErr.Errors = append(apiErr.Errors, e.Get("0").String()+": "+e.Get("1").String())
			continue
		}
		apiErr.Errors = append(apiErr.Errors, e.String())
	}
	return apiErr
}

// applyFlair is best effort: failures are logged and never fail the action. Pending
// votes get no flair until their result is known.
func (p *Reddit) applyFlair(ctx context.Context, ref record.Ref, rec record.Record) {
	form := url.Values{
		"api_type": {"json"},
		"link":     {string(ref)},
	}

	switch r := rec.(type) {
	case *record.Bill:
		if p.flair.Bill == "" || utf8.RuneCountInString(r.Title) >= MaxFlairTitleLength {
			return
		}
		form.Set("flair_template_id", p.flair.Bill)
		form.Set("text", r.Title)
	case *record.Vote:
		switch r.Result {
		case record.ResultPassed:
			form.Set("flair_template_id", p.flair.VotePassed)
		case record.ResultFailed:
			form.Set("flair_template_id", p.flair.VoteFailed)
		}
		if form.Get("flair_template_id") == "" {
			return
		}
	default:
		return
	}

	if _, err := p.caller.Call(ctx, http.MethodPost, fmt.Sprintf("r/%s/api/selectflair", p.subreddit), form); err != nil {
		slog.Warn("Failed to apply flair", "ref", ref, "record", rec.Key().String(), "error", err)
	}
}
