package models

// EmailHeaders carries the delivery headers used to recognise machine-generated mail.
// Read at parse time and never persisted.
type EmailHeaders struct {
	AutoSubmitted      string
	ContentDescription string
	ListUnsubscribe    bool
	Precedence         string
	ReturnPath         string
	XAutoreply         string
	XAutoresponse      string
	XLoop              bool
	XFailedRecipients  []string
}
