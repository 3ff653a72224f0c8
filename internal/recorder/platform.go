// internal/recorder/platform.go
package recorder

import "strings"

// platformMarkers maps URL substrings to platform tags, checked in order.
var platformMarkers = []struct {
	marker   string
	platform string
}{
	{"greenhouse.io", "greenhouse"},
	{"lever.co", "lever"},
	{"myworkdayjobs.com", "workday"},
	{"workday.com", "workday"},
	{"linkedin.com", "linkedin"},
	{"indeed.com", "indeed"},
	{"icims.com", "icims"},
	{"smartrecruiters.com", "smartrecruiters"},
	{"ashbyhq.com", "ashby"},
}

// DetectPlatform tags a workflow by the job platform of the visited URLs.
// Simple substring rules; the first marker seen across the URLs wins, and
// anything unrecognized is "generic".
func DetectPlatform(urls []string) string {
	for _, url := range urls {
		lowered := strings.ToLower(url)
		for _, m := range platformMarkers {
			if strings.Contains(lowered, m.marker) {
				return m.platform
			}
		}
	}
	return "generic"
}
