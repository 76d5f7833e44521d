package appointments

import (
	"fmt"
	"strings"

	errs "interview-notifier/internal/common/errors"
)

// Recipient roles and derived classification values used in template lookup.
const (
	roleParticipant = "participant"
	roleResearcher  = "researcher"

	mediumWeb   = "web"
	mediumPhone = "phone"

	domainNHS   = "nhs"
	domainOther = "other"
)

// Template names one transactional email template and the custom properties
// it needs rendered.
type Template struct {
	Name             string   `json:"name" dynamodbav:"name"`
	CustomProperties []string `json:"custom_properties" dynamodbav:"custom_properties"`
}

// TemplateMap is the four-level template lookup:
// [recipient role][event type][interview medium][email domain class].
// Appointment types may carry a partial override map; a role key present in
// the override shadows that role's entire default subtree.
type TemplateMap map[string]map[string]map[string]map[string]Template

var commonProperties = []string{
	"project_short_name",
	"user_first_name",
}

var bookingReschedulingProperties = append([]string{
	"appointment_cancel_url",
	"appointment_date",
	"appointment_duration",
	"appointment_reschedule_url",
}, commonProperties...)

var webProperties = append([]string{
	"interview_url",
}, bookingReschedulingProperties...)

var researcherProperties = []string{
	"interviewer_url",
}

func researcherPair(name string) map[string]map[string]Template {
	t := Template{Name: name, CustomProperties: researcherProperties}
	return map[string]map[string]Template{
		mediumWeb:   {domainOther: t},
		mediumPhone: {domainOther: t},
	}
}

// defaultTemplates is the baked-in fallback template set. Researchers get the
// same template regardless of medium and are never domain-classified;
// participants get medium- and domain-specific variants for booking,
// rescheduling and reminders but a single cancellation template.
var defaultTemplates = TemplateMap{
	roleParticipant: {
		EventBooking: {
			mediumWeb: {
				domainNHS:   {Name: "interview_booked_web_nhs_participant", CustomProperties: webProperties},
				domainOther: {Name: "interview_booked_web_participant", CustomProperties: webProperties},
			},
			mediumPhone: {
				domainNHS:   {Name: "interview_booked_phone_participant", CustomProperties: bookingReschedulingProperties},
				domainOther: {Name: "interview_booked_phone_participant", CustomProperties: bookingReschedulingProperties},
			},
		},
		EventRescheduling: {
			mediumWeb: {
				domainNHS:   {Name: "interview_rescheduled_web_nhs_participant", CustomProperties: webProperties},
				domainOther: {Name: "interview_rescheduled_web_participant", CustomProperties: webProperties},
			},
			mediumPhone: {
				domainNHS:   {Name: "interview_rescheduled_phone_participant", CustomProperties: bookingReschedulingProperties},
				domainOther: {Name: "interview_rescheduled_phone_participant", CustomProperties: bookingReschedulingProperties},
			},
		},
		EventCancellation: {
			mediumWeb: {
				domainNHS:   {Name: "interview_cancelled_participant", CustomProperties: commonProperties},
				domainOther: {Name: "interview_cancelled_participant", CustomProperties: commonProperties},
			},
			mediumPhone: {
				domainNHS:   {Name: "interview_cancelled_participant", CustomProperties: commonProperties},
				domainOther: {Name: "interview_cancelled_participant", CustomProperties: commonProperties},
			},
		},
		EventReminder: {
			mediumWeb: {
				domainNHS:   {Name: "interview_reminder_web_nhs_participant", CustomProperties: webProperties},
				domainOther: {Name: "interview_reminder_web_participant", CustomProperties: webProperties},
			},
			mediumPhone: {
				domainNHS:   {Name: "interview_reminder_phone_participant", CustomProperties: bookingReschedulingProperties},
				domainOther: {Name: "interview_reminder_phone_participant", CustomProperties: bookingReschedulingProperties},
			},
		},
	},
	roleResearcher: {
		EventBooking:      researcherPair("interview_booked_researcher"),
		EventRescheduling: researcherPair("interview_rescheduled_researcher"),
		EventCancellation: researcherPair("interview_cancelled_researcher"),
	},
}

// classifyEmailDomain buckets a recipient email for template selection. Only
// participants get the NHS distinction.
func classifyEmailDomain(role, email string) string {
	if role == roleParticipant && strings.Contains(email, "@nhs") {
		return domainNHS
	}
	return domainOther
}

// resolveTemplate selects a template for one recipient. overrides, when
// non-nil, shadows the default map per top-level role key. A missing
// combination is a configuration error, never a silent skip.
func resolveTemplate(overrides TemplateMap, role, eventType, medium, domain string) (*Template, error) {
	source := defaultTemplates
	if overrides != nil {
		if _, ok := overrides[role]; ok {
			source = overrides
		}
	}
	path := fmt.Sprintf("%s/%s/%s/%s", role, eventType, medium, domain)
	events, ok := source[role]
	if !ok {
		return nil, errs.NewTemplateNotFoundError(path)
	}
	media, ok := events[eventType]
	if !ok {
		return nil, errs.NewTemplateNotFoundError(path)
	}
	domains, ok := media[medium]
	if !ok {
		return nil, errs.NewTemplateNotFoundError(path)
	}
	tmpl, ok := domains[domain]
	if !ok {
		return nil, errs.NewTemplateNotFoundError(path)
	}
	return &tmpl, nil
}
