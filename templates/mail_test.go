package templates

import (
	"context"
	"strings"
	"testing"

	"devis/services"
	"devis/testhelpers"
)

func TestQuoteMail(t *testing.T) {
	data := previewData(t)
	var sb strings.Builder
	if err := QuoteMail(data, "Suite à notre visite,\r\n<b>voici</b> le devis.\n").Render(context.Background(), &sb); err != nil {
		t.Fatalf("Render: %v", err)
	}
	testhelpers.AssertHTMLContains(t, sb.String(),
		"<p>Bonjour,</p>",
		"<p>Suite à notre visite,<br>&lt;b&gt;voici&lt;/b&gt; le devis.</p>",
		"devis n° DEV-2026-10-001",
		services.FormatEUR(data.Totals.TotalTTC)+" TTC.",
		"Cordialement,<br>Atelier &lt;Dupont&gt;",
	)
}

func TestQuoteMail_NoMessage(t *testing.T) {
	var sb strings.Builder
	if err := QuoteMail(previewData(t), "  \n ").Render(context.Background(), &sb); err != nil {
		t.Fatalf("Render: %v", err)
	}
	if got := strings.Count(sb.String(), "<p>"); got != 3 {
		t.Errorf("paragraphs = %d, want 3 without a message", got)
	}
}
