// Package importers translates foreign coordination tools' export formats
// into monitor event recordings. Each importer validates events
// individually: malformed events are skipped, not fatal, and the return
// value is the count of events actually applied.
package importers

import (
	"encoding/json"
	"fmt"

	"github.com/willibrandon/cohere/internal/coherence"
	"github.com/willibrandon/cohere/internal/logger"
)

// mentionGuardExport is the MentionGuard JSON export shape.
type mentionGuardExport struct {
	Events []struct {
		Agent        string `json:"agent"`
		Acknowledged bool   `json:"acknowledged"`
	} `json:"events"`
}

// MentionGuard imports a MentionGuard export, recording one mention per
// event.
func MentionGuard(m *coherence.Monitor, data []byte) (int, error) {
	var export mentionGuardExport
	if err := json.Unmarshal(data, &export); err != nil {
		return 0, fmt.Errorf("parse mentionguard export: %w", err)
	}

	count := 0
	for _, event := range export.Events {
		if event.Agent == "" {
			logger.Debug("skipping mentionguard event without agent")
			continue
		}
		m.RecordMention(event.Agent, event.Acknowledged)
		count++
	}
	return count, nil
}

// liveAuditExport is the LiveAudit JSON export shape.
type liveAuditExport struct {
	Issues []struct {
		Agent string `json:"agent"`
	} `json:"issues"`
}

// LiveAudit imports a LiveAudit export. Every audited issue counts as an
// incorrect claim plus a detected error against the agent.
func LiveAudit(m *coherence.Monitor, data []byte) (int, error) {
	var export liveAuditExport
	if err := json.Unmarshal(data, &export); err != nil {
		return 0, fmt.Errorf("parse liveaudit export: %w", err)
	}

	count := 0
	for _, issue := range export.Issues {
		if issue.Agent == "" {
			logger.Debug("skipping liveaudit issue without agent")
			continue
		}
		m.RecordClaim(issue.Agent, false)
		m.RecordError(issue.Agent)
		count++
	}
	return count, nil
}

// postMortemExport is the PostMortem JSON export shape.
type postMortemExport struct {
	AgentGrades []struct {
		Agent      string   `json:"agent"`
		Grade      *float64 `json:"grade"`
		ClaimsMade *int     `json:"claims_made"`
	} `json:"agent_grades"`
}

// PostMortem defaults when a grade entry omits fields.
const (
	defaultGrade      = 100.0
	defaultClaimsMade = 10
)

// PostMortem imports a PostMortem analysis export, converting each agent's
// grade into a batch of claim results.
func PostMortem(m *coherence.Monitor, data []byte) (int, error) {
	var export postMortemExport
	if err := json.Unmarshal(data, &export); err != nil {
		return 0, fmt.Errorf("parse postmortem export: %w", err)
	}

	count := 0
	for _, entry := range export.AgentGrades {
		if entry.Agent == "" {
			logger.Debug("skipping postmortem grade without agent")
			continue
		}

		grade := defaultGrade
		if entry.Grade != nil {
			grade = *entry.Grade
		}
		claims := defaultClaimsMade
		if entry.ClaimsMade != nil {
			claims = *entry.ClaimsMade
		}
		if claims <= 0 || grade < 0 || grade > 100 {
			logger.Debug("skipping postmortem grade with invalid values",
				"agent", entry.Agent, "grade", grade, "claims", claims)
			continue
		}

		correct := int(float64(claims) * grade / 100)
		m.RecordClaimBatch(entry.Agent, claims, correct)
		count++
	}
	return count, nil
}
