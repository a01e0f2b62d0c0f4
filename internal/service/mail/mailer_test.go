package mail

import (
	"strings"
	"testing"
)

func TestRenderKnownTemplates(t *testing.T) {
	cases := []struct {
		template string
		vars     map[string]string
		contains string
	}{
		{TemplateVerification, map[string]string{"Username": "alice", "Link": "http://x/verify"}, "http://x/verify"},
		{TemplatePasswordReset, map[string]string{"Username": "alice", "Link": "http://x/reset"}, "valid for 1 hour"},
		{TemplateBanNotice, map[string]string{"Username": "alice", "Reason": "spamming"}, "Reason: spamming"},
	}
	for _, tc := range cases {
		body, err := render(Message{Template: tc.template, Vars: tc.vars})
		if err != nil {
			t.Fatalf("render %s: %v", tc.template, err)
		}
		if !strings.Contains(body, "Hi alice") {
			t.Errorf("%s body must greet the user: %s", tc.template, body)
		}
		if !strings.Contains(body, tc.contains) {
			t.Errorf("%s body missing %q: %s", tc.template, tc.contains, body)
		}
	}
}

func TestRenderUnknownTemplate(t *testing.T) {
	if _, err := render(Message{Template: "no_such_template"}); err == nil {
		t.Error("unknown template must fail, not send an empty body")
	}
}
