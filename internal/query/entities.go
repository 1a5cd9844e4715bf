package query

import (
	"regexp"
	"strings"
)

// Entity names
const (
	EntityHackathonName = "hackathon_name"
	EntityJudgingMode   = "judging_mode"
)

var hackathonNameRe = regexp.MustCompile(`(?i)for\s+(?:the\s+)?([A-Za-z0-9\s]+(?:hackathon|event|competition))`)

// ExtractEntities pulls domain entities out of a cleaned query. Missing
// entities are simply absent from the map; extraction never fails.
func ExtractEntities(query string) map[string]string {
	entities := make(map[string]string)

	if m := hackathonNameRe.FindStringSubmatch(query); m != nil {
		entities[EntityHackathonName] = strings.TrimSpace(m[1])
	}

	lower := strings.ToLower(query)
	switch {
	case strings.Contains(lower, "online judging"):
		entities[EntityJudgingMode] = "online"
	case strings.Contains(lower, "offline judging"):
		entities[EntityJudgingMode] = "offline"
	case strings.Contains(lower, "sponsor judging"):
		entities[EntityJudgingMode] = "sponsor"
	}

	return entities
}
