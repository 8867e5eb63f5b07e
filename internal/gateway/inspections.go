package gateway

import (
	"bytes"
	"context"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"

	"github.com/DukeRupert/walkthrough/internal/domain"
)

// Inspection record statuses.
const (
	InspectionStatusBooked    = 0
	InspectionStatusCompleted = 1
)

// Issue record constants.
const (
	IssueTypeMiscellaneous = 12
	IssueStatusNew         = 0
	ReportedSourceVisit    = 4
)

// InspectionPayload is the body of inspection create and update calls.
type InspectionPayload struct {
	DtsInspection string `json:"dtsInspection"`
	Status        int    `json:"status"`
	Notes         string `json:"notes"`
	NotifyTenants bool   `json:"notifyTenants"`
	UserID        *int   `json:"userId"` // always null
}

// IssuePayload is the body of an issue create call.
type IssuePayload struct {
	Type           int    `json:"type"`
	Status         int    `json:"status"`
	ReportedSource int    `json:"reportedSource"`
	Notes          string `json:"notes"`
	ProgressNotes  string `json:"progressNotes"`
	Priority       int    `json:"priority"`
}

// NotificationPayload is the body of a notification call.
type NotificationPayload struct {
	ListingID domain.ExternalID `json:"listingId"`
	Title     string            `json:"title"`
	Body      string            `json:"body"`
	Icon      string            `json:"icon"`
}

type createdResponse struct {
	ID domain.ExternalID `json:"id"`
}

// CreateInspection creates an inspection record on a listing and returns
// its id.
func (c *Client) CreateInspection(ctx context.Context, listingID domain.ExternalID, payload InspectionPayload) (domain.ExternalID, error) {
	var resp createdResponse
	if err := c.sendJSON(ctx, "create_inspection", http.MethodPost, listingPath(listingID, "inspections"), payload, &resp); err != nil {
		return "", err
	}
	if resp.ID.IsZero() {
		return "", fmt.Errorf("create inspection: response has no id")
	}
	return resp.ID, nil
}

// UpdateInspection replaces an inspection record.
func (c *Client) UpdateInspection(ctx context.Context, listingID, inspectionID domain.ExternalID, payload InspectionPayload) error {
	return c.sendJSON(ctx, "update_inspection", http.MethodPut, listingPath(listingID, "inspections", inspectionID.String()), payload, nil)
}

// CreateIssue creates a maintenance issue on a listing and returns its id.
func (c *Client) CreateIssue(ctx context.Context, listingID domain.ExternalID, payload IssuePayload) (domain.ExternalID, error) {
	var resp createdResponse
	if err := c.sendJSON(ctx, "create_issue", http.MethodPost, listingPath(listingID, "issues"), payload, &resp); err != nil {
		return "", err
	}
	if resp.ID.IsZero() {
		return "", fmt.Errorf("create issue: response has no id")
	}
	return resp.ID, nil
}

// SendNotification posts a notification.
func (c *Client) SendNotification(ctx context.Context, payload NotificationPayload) error {
	return c.sendJSON(ctx, "send_notification", http.MethodPost, "/notifications", payload, nil)
}

// UploadInspectionMedia attaches a photo to an inspection record.
func (c *Client) UploadInspectionMedia(ctx context.Context, listingID, inspectionID domain.ExternalID, photo domain.Photo) error {
	return c.uploadMedia(ctx, "upload_inspection_media", listingPath(listingID, "inspections", inspectionID.String(), "media"), photo)
}

// UploadIssueMedia attaches a photo to an issue.
func (c *Client) UploadIssueMedia(ctx context.Context, listingID, issueID domain.ExternalID, photo domain.Photo) error {
	return c.uploadMedia(ctx, "upload_issue_media", listingPath(listingID, "issues", issueID.String(), "media"), photo)
}

// uploadMedia posts photo as multipart field "media". The file name always
// carries a .jpg extension; the part declares the photo's own media type.
func (c *Client) uploadMedia(ctx context.Context, op, path string, photo domain.Photo) error {
	data, mediaType, err := photo.Decode()
	if err != nil {
		return err
	}
	if mediaType == "" {
		mediaType = domain.UploadContentType
	}

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)

	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="media"; filename="%s"`, mediaFilename(c.now().UnixMilli())))
	h.Set("Content-Type", mediaType)
	part, err := mw.CreatePart(h)
	if err != nil {
		return fmt.Errorf("create form part: %w", err)
	}
	if _, err := part.Write(data); err != nil {
		return fmt.Errorf("write form part: %w", err)
	}
	if err := mw.Close(); err != nil {
		return fmt.Errorf("close form: %w", err)
	}

	_, err = c.send(ctx, op, http.MethodPost, path, nil, &buf, mw.FormDataContentType())
	return err
}

func mediaFilename(unixMilli int64) string {
	return fmt.Sprintf("photo-%d.jpg", unixMilli)
}

func listingPath(listingID domain.ExternalID, segments ...string) string {
	p := "/listings/" + url.PathEscape(listingID.String())
	for _, s := range segments {
		p += "/" + url.PathEscape(s)
	}
	return p
}
