package compose

import (
	"fmt"
	"strings"

	"github.com/jonathan/job-agent/internal/types"
)

func buildComposePrompt(masterJSON string, posting *types.JobPosting, priorJSON, feedback string) string {
	var sb strings.Builder
	sb.WriteString("You are tailoring a CV to a specific job posting.\n\n")
	sb.WriteString("Master CV (the ONLY source of facts you may use):\n")
	sb.WriteString(masterJSON)
	sb.WriteString("\n\nTarget job posting:\n")
	sb.WriteString(fmt.Sprintf("Title: %s\n", posting.Title))
	sb.WriteString(fmt.Sprintf("Company: %s\n", posting.Company))
	sb.WriteString("\nDescription:\n")
	sb.WriteString(posting.Description)
	if posting.Requirements != "" {
		sb.WriteString("\n\nRequirements:\n")
		sb.WriteString(posting.Requirements)
	}
	if priorJSON != "" {
		sb.WriteString("\n\nYour previous tailored version, rejected by the reviewer:\n")
		sb.WriteString(priorJSON)
	}
	if strings.TrimSpace(feedback) != "" {
		sb.WriteString("\n\nReviewer feedback on the previous version. Revise it and address every point:\n")
		sb.WriteString(feedback)
	}
	sb.WriteString("\n\nProduce a tailored CV as JSON with the same structure as the master CV.\n")
	sb.WriteString("Rules:\n")
	sb.WriteString("- Emphasize and reword experience relevant to this posting.\n")
	sb.WriteString("- You may drop entries that are irrelevant.\n")
	sb.WriteString("- NEVER invent employers, job titles, schools, degrees, certifications, projects, or dates.\n")
	sb.WriteString("- Every company, institution, certification, and project in your output MUST appear in the master CV.\n")
	sb.WriteString("- Return ONLY the JSON object, no markdown, no explanation.\n")
	return sb.String()
}

func buildRepairPrompt(basePrompt, previousOutput, problem string) string {
	var sb strings.Builder
	sb.WriteString(basePrompt)
	sb.WriteString("\n\nYour previous attempt was rejected:\n")
	sb.WriteString(problem)
	sb.WriteString("\n\nPrevious output:\n")
	sb.WriteString(previousOutput)
	sb.WriteString("\n\nFix the problem and return the corrected JSON object only.\n")
	return sb.String()
}
