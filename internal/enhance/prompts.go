package enhance

import (
	"fmt"
	"strings"

	"github.com/1kuna/JPS-Prospect-Aggregate-sub003/internal/model"
	"github.com/1kuna/JPS-Prospect-Aggregate-sub003/internal/setaside"
)

const systemPrompt = `You are a data enrichment assistant for government contracting opportunities. Respond with a single JSON object and no surrounding prose or markdown.`

func valuePrompt(p *model.Prospect) string {
	return fmt.Sprintf(`Parse the monetary value from this contract value text.

Value text: %q

Rules:
- If the text describes a single amount, return it as "single" and leave "min"/"max" null.
- If the text describes a range, return "min" and "max" and leave "single" null.
- Amounts are in US dollars; expand abbreviations like "K" and "M".
- If no amount can be determined, return all nulls with confidence 0.

JSON format: {"single": number|null, "min": number|null, "max": number|null, "confidence": 0.0-1.0}`,
		p.EstimatedValueText)
}

func naicsPrompt(p *model.Prospect) string {
	desc := p.Description
	if len(desc) > 2000 {
		desc = desc[:2000]
	}
	return fmt.Sprintf(`Classify this government contracting opportunity with the single most appropriate 6-digit NAICS code.

Title: %s
Agency: %s
Description: %s

JSON format: {"code": "6-digit NAICS code", "confidence": 0.0-1.0}`,
		p.Title, p.Agency, desc)
}

func titlePrompt(p *model.Prospect) string {
	desc := p.Description
	if len(desc) > 2000 {
		desc = desc[:2000]
	}
	return fmt.Sprintf(`Rewrite this contract opportunity title to be clear and descriptive for a business audience. Expand acronyms where the description makes their meaning unambiguous. If the original title is already clear, return it unchanged.

Title: %s
Agency: %s
Description: %s

JSON format: {"enhanced_title": "improved title", "confidence": 0.0-1.0, "reasoning": "brief explanation"}`,
		p.Title, p.Agency, desc)
}

func setAsidePrompt(p *model.Prospect) string {
	codes := setaside.AllCodes()
	names := make([]string, len(codes))
	for i, c := range codes {
		names[i] = string(c)
	}
	return fmt.Sprintf(`Map this procurement set-aside text to exactly one of the standard categories.

Set-aside text: %q

Categories: %s

JSON format: {"code": "one category from the list", "confidence": 0.0-1.0}`,
		p.SetAside, strings.Join(names, ", "))
}
