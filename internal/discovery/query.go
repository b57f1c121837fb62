package discovery

import (
	"fmt"
	"strings"
)

// negativeClause keeps video, slide, course, PDF and template results out.
const negativeClause = " -youtube -video -ppt -slides -course -udemy -pdf -template"

// BuildQueries restates topic at level as four search queries: three
// structural phrasings and a permissive fallback for topics with little
// "system design" coverage. Multi-word topics are quoted.
func BuildQueries(topic string, level Level) []string {
	// stray quotes would unbalance the phrase match
	t := strings.Join(strings.Fields(strings.ReplaceAll(topic, `"`, " ")), " ")
	if strings.Contains(t, " ") {
		t = `"` + t + `"`
	}
	lv := level.Phrase()

	return []string{
		fmt.Sprintf(`%s "system design" %s architecture components relationships data flow%s`, t, lv, negativeClause),
		fmt.Sprintf(`%s "system design" %s "request flow" "data flow"%s`, t, lv, negativeClause),
		fmt.Sprintf(`%s %s backend architecture "load balancer" "api gateway" cache database queue%s`, t, lv, negativeClause),
		fmt.Sprintf(`%s "how it works" architecture diagram components%s`, t, negativeClause),
	}
}
