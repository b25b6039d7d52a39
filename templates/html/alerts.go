package templates

import (
	"fmt"

	"github.com/safekid-nepal/safekid-api/models"
)

// AlertMessage is the SMS text broadcast for a new report
func AlertMessage(r models.MissingChildReport) string {
	return fmt.Sprintf("MISSING CHILD ALERT: %s, Age %d, last seen at %s. Contact: %s. Help us find them! - SafeKid Nepal",
		r.ChildName, r.ChildAge, r.LastSeenLocation, r.ParentPhone)
}

// ReportPostedEmail returns the subject and HTML body confirming a report went out
func ReportPostedEmail(r models.MissingChildReport, sent int) (string, string) {
	subject := fmt.Sprintf("Alert posted for %s", r.ChildName)
	body := fmt.Sprintf("Dear %s,\n\nYour report for %s (age %d) is live. The alert was sent to %d recipients in the %s broadcast area.\n\nLast seen: %s\n\nWe will let you know as soon as someone reports a sighting.",
		r.ParentName, r.ChildName, r.ChildAge, sent, r.BroadcastArea, r.LastSeenLocation)
	return subject, RenderGenericEmail(subject, body)
}

// ChildFoundEmail returns the subject and HTML body sent when a report is marked found
func ChildFoundEmail(r models.MissingChildReport) (string, string) {
	subject := fmt.Sprintf("%s has been found", r.ChildName)
	body := fmt.Sprintf("Dear %s,\n\nYour report for %s has been marked as found. Thank you to the %d community members who shared sightings.",
		r.ParentName, r.ChildName, contributors(r.Sightings))
	return subject, RenderGenericEmail(subject, body)
}

// contributors counts the distinct people who submitted sightings
func contributors(sightings []models.Sighting) int {
	seen := map[string]struct{}{}
	for _, sg := range sightings {
		seen[sg.SubmitterID] = struct{}{}
	}
	return len(seen)
}
