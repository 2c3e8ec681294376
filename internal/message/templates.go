package message

import (
	"fmt"
	"strconv"

	"chaletd/internal/model"
	"chaletd/internal/stage"
)

// Template is the subject and body for one stage. Bodies use [TOKEN]
// placeholders resolved by Render.
type Template struct {
	Subject string
	Body    string
}

// Establishment carries the property details substituted into messages.
type Establishment struct {
	Name      string
	DoorCode  string
	ReviewURL string
}

var templates = map[stage.Stage]Template{
	stage.SevenDaysOut: {
		Subject: "Practical information before your arrival",
		Body: "Hello [GUEST],\n\n" +
			"Your stay at [PROPERTY] from [ARRIVAL] to [DEPARTURE] ([NIGHTS] nights) is one week away.\n" +
			"Here is some practical information to prepare your trip. Feel free to reply to this email with any question.\n\n" +
			"See you soon,\n[PROPERTY]",
	},
	stage.ThreeDaysOut: {
		Subject: "Preparing your stay",
		Body: "Hello [GUEST],\n\n" +
			"Your stay at [PROPERTY] begins on [ARRIVAL]. A few reminders to help you prepare:\n" +
			"check-in is from 4pm, and parking is available on site.\n\n" +
			"See you soon,\n[PROPERTY]",
	},
	stage.OneDayOut: {
		Subject: "Information for your arrival tomorrow",
		Body: "Hello [GUEST],\n\n" +
			"You arrive tomorrow, [ARRIVAL]. Your door code is [DOOR_CODE].\n" +
			"The key box is next to the entrance door.\n\n" +
			"Safe travels,\n[PROPERTY]",
	},
	stage.DayOf: {
		Subject: "Your reservation is confirmed",
		Body: "Hello [GUEST],\n\n" +
			"Your stay at [PROPERTY] from [ARRIVAL] to [DEPARTURE] ([NIGHTS] nights) is confirmed.\n" +
			"Your door code is [DOOR_CODE].\n\n" +
			"Welcome,\n[PROPERTY]",
	},
	stage.DepartureEve: {
		Subject: "Information for your departure",
		Body: "Hello [GUEST],\n\n" +
			"A few reminders for your departure on [DEPARTURE]: checkout is before 10am,\n" +
			"please leave the keys in the key box.\n\n" +
			"Thank you,\n[PROPERTY]",
	},
	stage.PostStay: {
		Subject: "Thank you for your stay",
		Body: "Hello [GUEST],\n\n" +
			"Thank you for staying at [PROPERTY]. We hope you had a wonderful time.\n" +
			"If you enjoyed your stay, you can leave us a review here: [REVIEW_URL]\n\n" +
			"Hope to see you again,\n[PROPERTY]",
	},
}

// ForStage renders the subject and body for one stage and reservation.
func ForStage(s stage.Stage, r model.Reservation, est Establishment) (subject, body string, err error) {
	tmpl, ok := templates[s]
	if !ok {
		return "", "", fmt.Errorf("message: no template for stage %s", s)
	}

	fields := map[string]string{
		"GUEST":      r.Name,
		"ARRIVAL":    r.Arrival.String(),
		"DEPARTURE":  r.Departure.String(),
		"NIGHTS":     strconv.Itoa(r.Nights()),
		"PROPERTY":   est.Name,
		"DOOR_CODE":  est.DoorCode,
		"REVIEW_URL": est.ReviewURL,
	}

	body, err = Render(tmpl.Body, fields)
	if err != nil {
		return "", "", err
	}
	return tmpl.Subject, body, nil
}
