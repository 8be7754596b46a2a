package compose

import (
	"fmt"
	"strings"

	"github.com/jonathan/job-agent/internal/types"
)

// CheckFabrication verifies that every factual entity in the composed CV
// exists in the master CV. The composer may reorder, rephrase, and drop
// content but must never invent employers, schools, or credentials.
// Returns a list of fabricated entities, empty when the CV is clean.
func CheckFabrication(master, composed *types.StructuredCV) []string {
	var fabricated []string

	companies := entitySet(master.Experience, func(e types.Experience) string { return e.Company })
	for _, exp := range composed.Experience {
		if !companies[normalizeEntity(exp.Company)] {
			fabricated = append(fabricated, fmt.Sprintf("employer %q", exp.Company))
		}
	}

	institutions := entitySet(master.Education, func(e types.Education) string { return e.Institution })
	for _, edu := range composed.Education {
		if !institutions[normalizeEntity(edu.Institution)] {
			fabricated = append(fabricated, fmt.Sprintf("institution %q", edu.Institution))
		}
	}

	certs := make(map[string]bool, len(master.Certifications))
	for _, c := range master.Certifications {
		certs[normalizeEntity(c.Name)+"|"+normalizeEntity(c.Issuer)] = true
	}
	for _, c := range composed.Certifications {
		if !certs[normalizeEntity(c.Name)+"|"+normalizeEntity(c.Issuer)] {
			fabricated = append(fabricated, fmt.Sprintf("certification %q (%s)", c.Name, c.Issuer))
		}
	}

	projects := entitySet(master.Projects, func(p types.Project) string { return p.Name })
	for _, p := range composed.Projects {
		if !projects[normalizeEntity(p.Name)] {
			fabricated = append(fabricated, fmt.Sprintf("project %q", p.Name))
		}
	}

	return fabricated
}

func entitySet[T any](items []T, key func(T) string) map[string]bool {
	set := make(map[string]bool, len(items))
	for _, item := range items {
		set[normalizeEntity(key(item))] = true
	}
	return set
}

// normalizeEntity makes entity comparison tolerant of case and spacing
// differences without letting genuinely new entities through.
func normalizeEntity(s string) string {
	return strings.ToLower(strings.Join(strings.Fields(s), " "))
}
