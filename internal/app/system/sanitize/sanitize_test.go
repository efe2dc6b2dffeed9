package sanitize_test

import (
	"strings"
	"testing"

	"github.com/dalemusser/gatherhub/internal/app/system/sanitize"
)

func TestPlain_StripsMarkup(t *testing.T) {
	got := sanitize.Plain(`Nice event! <script>alert('x')</script><b>see you</b>`)
	if strings.Contains(got, "<") {
		t.Errorf("expected all markup stripped, got %q", got)
	}
	if !strings.Contains(got, "Nice event!") {
		t.Errorf("expected text preserved, got %q", got)
	}
}

func TestPlain_TrimsWhitespace(t *testing.T) {
	if got := sanitize.Plain("  hello  "); got != "hello" {
		t.Errorf("got %q, want %q", got, "hello")
	}
}

func TestRich_KeepsSafeHTML(t *testing.T) {
	in := "<p><strong>Bold</strong> and <em>italic</em></p>"
	if got := sanitize.Rich(in); got != in {
		t.Errorf("expected safe HTML preserved, got %q", got)
	}
}

func TestRich_RemovesScript(t *testing.T) {
	got := sanitize.Rich("<p>Hello</p><script>alert('xss')</script>")
	if got != "<p>Hello</p>" {
		t.Errorf("expected script removed, got %q", got)
	}
}

func TestRich_RemovesJavascriptHref(t *testing.T) {
	got := sanitize.Rich(`<a href="javascript:alert('xss')">Click</a>`)
	if strings.Contains(got, "javascript:") {
		t.Errorf("expected javascript: href removed, got %q", got)
	}
}
