package generation

import (
	"encoding/json"
	"strings"
)

const SystemPrompt = `You are an assistant that writes daily work reports for software engineers.
Using the data provided, write a high quality daily report in Markdown that includes a technical retrospective.

## Report structure
1. **Today's results** - features implemented and task progress
2. **Technical learnings** - technologies and tools used, problems solved
3. **Issues and improvements** - problems encountered, ideas for improvement
4. **Plan for tomorrow** - next tasks and ongoing work

## Output requirements
- Output Markdown only
- Keep the writing concise and readable
- Include technical detail
- If data is missing, say so explicitly`

const noData = "No data\n\n"

func GeneratePrompt(in Input) string {
	var b strings.Builder
	b.WriteString("## Report date\n")
	b.WriteString(in.Date.Format("January 2, 2006"))
	b.WriteString("\n\n")

	writeData(&b, in)

	if notes := strings.TrimSpace(in.AdditionalNotes); notes != "" {
		b.WriteString("### Additional notes from the user\n")
		b.WriteString(notes)
		b.WriteString("\n\n")
	}

	b.WriteString("Based on the information above, write the daily report in Markdown, including a technical retrospective.")
	return b.String()
}

func RegeneratePrompt(in Input, previous, feedback string) string {
	var b strings.Builder
	b.WriteString("## Report date\n")
	b.WriteString(in.Date.Format("January 2, 2006"))
	b.WriteString("\n\n")

	b.WriteString("## Previously generated report\n")
	b.WriteString("```markdown\n")
	b.WriteString(previous)
	b.WriteString("\n```\n\n")

	if fb := strings.TrimSpace(feedback); fb != "" {
		b.WriteString("## User feedback\n")
		b.WriteString(fb)
		b.WriteString("\n\n")
	}

	writeData(&b, in)

	if notes := strings.TrimSpace(in.AdditionalNotes); notes != "" {
		b.WriteString("### Additional notes\n")
		b.WriteString(notes)
		b.WriteString("\n\n")
	}

	b.WriteString("Using the previous report and the feedback, produce an improved daily report in Markdown.")
	return b.String()
}

func writeData(b *strings.Builder, in Input) {
	b.WriteString("## Available data\n\n")

	b.WriteString("### GitHub activity\n")
	if in.GitHub != nil && !in.GitHub.Empty() {
		writeJSON(b, in.GitHub)
	} else {
		b.WriteString(noData)
	}

	b.WriteString("### Time tracking (Toggl)\n")
	if in.Toggl != nil && !in.Toggl.Empty() {
		writeJSON(b, in.Toggl)
	} else {
		b.WriteString(noData)
	}

	b.WriteString("### Documents and notes (Notion)\n")
	if in.Notion != nil && !in.Notion.Empty() {
		writeJSON(b, in.Notion)
	} else {
		b.WriteString(noData)
	}
}

func writeJSON(b *strings.Builder, v interface{}) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		b.WriteString(noData)
		return
	}
	b.WriteString("```json\n")
	b.Write(data)
	b.WriteString("\n```\n\n")
}

// stripFence removes a wrapping ```markdown fence some models add.
func stripFence(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```markdown")
	s = strings.TrimPrefix(s, "```md")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}
