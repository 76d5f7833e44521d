package appointments

import (
	"context"
	"fmt"
	"strings"

	errs "interview-notifier/internal/common/errors"
)

const phoneContactNotice = "We will call you on the phone number provided"

// projectContext cross-references the type's project task id against the
// directory's project listing. An unknown task id is a hard error.
func (n *notifier) projectContext(ctx context.Context) error {
	if n.projectShortName != "" {
		return nil
	}
	taskID := ""
	if n.at.ProjectTaskID != nil {
		taskID = *n.at.ProjectTaskID
	}
	projects, err := n.svc.directory.GetProjects(ctx)
	if err != nil {
		return err
	}
	for _, p := range projects {
		for _, t := range p.Tasks {
			if taskID != "" && t.ID == taskID {
				n.projectID = p.ID
				n.projectShortName = p.ShortName
				return nil
			}
		}
	}
	return errs.NewNotFoundError(errs.ErrCodeProjectTaskNotFound, "project task", taskID)
}

// resolveAnonUserID looks up the participant's anonymised per-project id.
// Both "no directory account" and "not a member of this project" are soft
// misses resolved to nil.
func (n *notifier) resolveAnonUserID(ctx context.Context) (*string, error) {
	if n.anonResolved {
		return n.anonUserID, nil
	}
	n.anonResolved = true

	userID, err := n.svc.resolveParticipantUserID(ctx, n.appt)
	if err != nil {
		return nil, err
	}
	if userID == nil {
		return nil, nil
	}
	if n.projectID == "" {
		if err := n.projectContext(ctx); err != nil {
			return nil, err
		}
	}
	ups, err := n.svc.directory.GetUserProjects(ctx, *userID)
	if err != nil {
		return nil, err
	}
	for _, up := range ups {
		if up.ProjectID == n.projectID {
			anon := up.AnonUserID
			n.anonUserID = &anon
			return n.anonUserID, nil
		}
	}
	n.svc.log.Info("participant has no anonymised id for project", map[string]interface{}{
		"appointment_id": n.appt.AppointmentID,
		"project_id":     n.projectID,
	})
	return nil, nil
}

// interviewURLValue renders the interview_url property. Web appointments get
// an HTML anchor around the stored link; phone appointments get a fixed
// contact notice.
func (n *notifier) interviewURLValue() string {
	if !n.at.HasLink {
		return phoneContactNotice
	}
	link := ""
	if n.appt.Link != nil {
		link = *n.appt.Link
	}
	return fmt.Sprintf(`<a href="%s" style="color:#dd0031" rel="noopener">%s</a>`, link, link)
}

// interviewerURLValue renders the researcher-facing interviewer_url property:
// the interviewer-side video link for web appointments, or phone contact
// instructions otherwise.
func (n *notifier) interviewerURLValue(ctx context.Context) (string, error) {
	if n.at.HasLink {
		return n.interviewerLink(ctx)
	}
	if phone := n.appt.SourceInfo.Phone; phone != "" {
		return "Please call participant on " + phone, nil
	}
	return "Participant did not provide a phone number. Please contact them by email to obtain a contact number", nil
}

// customProperties computes the property values a template asks for. Only
// requested names are resolved, so templates that need no project context
// never trigger directory calls. An unknown name is a programming-contract
// violation.
func (n *notifier) customProperties(ctx context.Context, names []string) (map[string]string, error) {
	if len(names) == 0 {
		return map[string]string{}, nil
	}
	info := n.appt.SourceInfo
	props := make(map[string]string, len(names))
	for _, name := range names {
		switch name {
		case "project_short_name":
			if err := n.projectContext(ctx); err != nil {
				return nil, err
			}
			props[name] = n.projectShortName
		case "anon_project_specific_user_id":
			anon, err := n.resolveAnonUserID(ctx)
			if err != nil {
				return nil, err
			}
			if anon != nil {
				props[name] = *anon
			} else {
				props[name] = ""
			}
		case "appointment_date":
			when, err := parseSourceDatetime(info.Datetime)
			if err != nil {
				return nil, errs.NewMalformedEventError(info.Datetime)
			}
			props[name] = when.Format("Monday 02 January 2006")
		case "appointment_time":
			when, err := parseSourceDatetime(info.Datetime)
			if err != nil {
				return nil, errs.NewMalformedEventError(info.Datetime)
			}
			props[name] = when.Format("15:04")
		case "appointment_duration":
			props[name] = info.Duration + " minutes"
		case "appointment_cancel_url", "appointment_reschedule_url":
			props[name] = info.ConfirmationPage
		case "appointment_type_name":
			props[name] = n.at.Name
		case "interviewer_first_name":
			if fields := strings.Fields(n.appt.CalendarName); len(fields) > 0 {
				props[name] = fields[0]
			}
		case "interview_url":
			props[name] = n.interviewURLValue()
		case "interviewer_url":
			value, err := n.interviewerURLValue(ctx)
			if err != nil {
				return nil, err
			}
			props[name] = value
		case "user_email":
			props[name] = n.appt.ParticipantEmail
		case "user_first_name":
			props[name] = info.FirstName
		case "user_last_name":
			props[name] = info.LastName
		default:
			return nil, errs.NewUnknownPropertyError(name)
		}
	}
	return props, nil
}
