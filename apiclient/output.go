package apiclient

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/retracehq/retrace"
	"github.com/retracehq/retrace/blob"
)

// Formatter formats results for output.
type Formatter interface {
	FormatRecord(w io.Writer, session retrace.Session) error
	FormatSessionList(w io.Writer, result *retrace.ListResult) error
	FormatSession(w io.Writer, session retrace.Session) error
	FormatDelete(w io.Writer, results []DeleteResult) error
	FormatDownload(w io.Writer, result *DownloadResult) error
	FormatAttach(w io.Writer, attachment retrace.Attachment) error
	FormatShare(w io.Writer, result ShareResult) error
	FormatBlobList(w io.Writer, result *blob.ListResult) error
	FormatPurge(w io.Writer, prefix string, deleted int) error
	FormatError(w io.Writer, err error) error
	FormatProfileList(w io.Writer, profiles []Profile, defaultName string, showSecrets bool) error
	FormatProfileShow(w io.Writer, profile Profile, isDefault, showSecrets bool) error
}

// NewFormatter returns the appropriate formatter based on flags.
func NewFormatter(jsonOutput, quiet bool) Formatter {
	if jsonOutput {
		return &JSONFormatter{}
	}
	return &HumanFormatter{Quiet: quiet}
}

// HumanFormatter outputs human-readable text.
type HumanFormatter struct {
	Quiet bool
}

// FormatRecord formats an ingested session as human-readable text.
func (f *HumanFormatter) FormatRecord(w io.Writer, session retrace.Session) error {
	if !f.Quiet {
		_, _ = fmt.Fprintf(w, "Recorded: %s (%d events, %s)\n", session.ID, session.EventCount, formatSize(session.RecordingSize))
		_, _ = fmt.Fprintf(w, "  Recording: %s\n", session.RecordingKey)
	}
	return nil
}

// FormatSessionList formats list results as human-readable text.
func (f *HumanFormatter) FormatSessionList(w io.Writer, result *retrace.ListResult) error {
	if len(result.Items) == 0 {
		_, _ = fmt.Fprintln(w, "No sessions found")
		return nil
	}

	// Calculate column widths
	maxURLLen := 8 // "PAGE URL"
	for i := range result.Items {
		if len(result.Items[i].PageURL) > maxURLLen {
			maxURLLen = len(result.Items[i].PageURL)
		}
	}
	if maxURLLen > 60 {
		maxURLLen = 60
	}

	// Print header
	_, _ = fmt.Fprintf(w, "%-36s  %-*s  %7s  %10s  %s\n", "ID", maxURLLen, "PAGE URL", "EVENTS", "SIZE", "CREATED")
	_, _ = fmt.Fprintf(w, "%s  %s  %s  %s  %s\n",
		strings.Repeat("-", 36), strings.Repeat("-", maxURLLen), strings.Repeat("-", 7), strings.Repeat("-", 10), strings.Repeat("-", 19))

	// Print items
	var totalSize int64
	for i := range result.Items {
		item := &result.Items[i]
		totalSize += item.RecordingSize

		pageURL := item.PageURL
		if len(pageURL) > maxURLLen {
			pageURL = pageURL[:maxURLLen-3] + "..."
		}
		_, _ = fmt.Fprintf(w, "%-36s  %-*s  %7d  %10s  %s\n",
			item.ID,
			maxURLLen,
			pageURL,
			item.EventCount,
			formatSize(item.RecordingSize),
			item.CreatedAt.Format("2006-01-02 15:04:05"),
		)
	}

	// Print summary
	_, _ = fmt.Fprintf(w, "\n%d session(s) (%s total)\n", len(result.Items), formatSize(totalSize))

	if result.NextCursor != "" {
		_, _ = fmt.Fprintf(w, "Next page: use --cursor %q\n", result.NextCursor)
	}

	return nil
}

// FormatSession formats a single session as human-readable text.
func (f *HumanFormatter) FormatSession(w io.Writer, session retrace.Session) error {
	_, _ = fmt.Fprintf(w, "ID:         %s\n", session.ID)
	_, _ = fmt.Fprintf(w, "Page URL:   %s\n", session.PageURL)
	if session.UserAgent != "" {
		_, _ = fmt.Fprintf(w, "User Agent: %s\n", session.UserAgent)
	}
	_, _ = fmt.Fprintf(w, "Events:     %d\n", session.EventCount)
	_, _ = fmt.Fprintf(w, "Recording:  %s (%s)\n", session.RecordingKey, formatSize(session.RecordingSize))
	if session.Summary != "" {
		_, _ = fmt.Fprintf(w, "Summary:    %s\n", session.Summary)
	}
	_, _ = fmt.Fprintf(w, "Created:    %s\n", session.CreatedAt.Format("2006-01-02 15:04:05"))
	_, _ = fmt.Fprintf(w, "Updated:    %s\n", session.UpdatedAt.Format("2006-01-02 15:04:05"))
	return nil
}

// FormatDelete formats delete results as human-readable text.
func (f *HumanFormatter) FormatDelete(w io.Writer, results []DeleteResult) error {
	for i := range results {
		r := &results[i]
		if r.Err != nil {
			_, _ = fmt.Fprintf(w, "Error: %s - %v\n", r.ID, r.Err)
			continue
		}
		if !f.Quiet {
			_, _ = fmt.Fprintf(w, "Deleted: %s\n", r.ID)
		}
	}
	return nil
}

// FormatDownload formats download result as human-readable text.
func (f *HumanFormatter) FormatDownload(w io.Writer, result *DownloadResult) error {
	if !f.Quiet {
		if result.LocalPath == "-" {
			_, _ = fmt.Fprintf(w, "Downloaded: %s (%s)\n", result.ID, formatSize(result.Size))
		} else {
			_, _ = fmt.Fprintf(w, "Downloaded: %s -> %s (%s)\n", result.ID, result.LocalPath, formatSize(result.Size))
		}
		if result.ETag != "" {
			_, _ = fmt.Fprintf(w, "  ETag: %s\n", result.ETag)
		}
	}
	return nil
}

// FormatAttach formats an attachment upload as human-readable text.
func (f *HumanFormatter) FormatAttach(w io.Writer, attachment retrace.Attachment) error {
	if !f.Quiet {
		_, _ = fmt.Fprintf(w, "Attached: %s (%s)\n", attachment.Key, formatSize(attachment.Size))
		_, _ = fmt.Fprintf(w, "  URL: %s\n", attachment.URL)
	}
	return nil
}

// FormatShare formats a share link as human-readable text.
func (f *HumanFormatter) FormatShare(w io.Writer, result ShareResult) error {
	if !f.Quiet {
		_, _ = fmt.Fprintf(w, "Share URL: %s\n", result.URL)
		_, _ = fmt.Fprintf(w, "  Expires: %s\n", result.ExpiresAt.Format("2006-01-02 15:04:05"))
	}
	return nil
}

// FormatBlobList formats blob list results as human-readable text.
func (f *HumanFormatter) FormatBlobList(w io.Writer, result *blob.ListResult) error {
	if len(result.Blobs) == 0 {
		_, _ = fmt.Fprintln(w, "No blobs found")
		return nil
	}

	// Calculate column widths
	maxKeyLen := 3 // "KEY"
	for i := range result.Blobs {
		if len(result.Blobs[i].Key) > maxKeyLen {
			maxKeyLen = len(result.Blobs[i].Key)
		}
	}
	if maxKeyLen > 60 {
		maxKeyLen = 60
	}

	// Print header
	_, _ = fmt.Fprintf(w, "%-*s  %10s  %s\n", maxKeyLen, "KEY", "SIZE", "UPLOADED")
	_, _ = fmt.Fprintf(w, "%s  %s  %s\n", strings.Repeat("-", maxKeyLen), strings.Repeat("-", 10), strings.Repeat("-", 19))

	// Print items
	var totalSize int64
	for i := range result.Blobs {
		entry := &result.Blobs[i]
		totalSize += entry.Size

		key := entry.Key
		if len(key) > maxKeyLen {
			key = key[:maxKeyLen-3] + "..."
		}
		_, _ = fmt.Fprintf(w, "%-*s  %10s  %s\n",
			maxKeyLen,
			key,
			formatSize(entry.Size),
			entry.UploadedAt.Format("2006-01-02 15:04:05"),
		)
	}

	// Print summary
	_, _ = fmt.Fprintf(w, "\n%d blob(s) (%s total)\n", len(result.Blobs), formatSize(totalSize))

	if result.HasMore && result.Cursor != "" {
		_, _ = fmt.Fprintf(w, "Next page: use --cursor %q\n", result.Cursor)
	}

	return nil
}

// FormatPurge formats a purge result as human-readable text.
func (f *HumanFormatter) FormatPurge(w io.Writer, prefix string, deleted int) error {
	if !f.Quiet {
		_, _ = fmt.Fprintf(w, "Purged: %d blob(s) under %q\n", deleted, prefix)
	}
	return nil
}

// FormatError formats an error as human-readable text.
func (f *HumanFormatter) FormatError(w io.Writer, err error) error {
	_, _ = fmt.Fprintf(w, "Error: %v\n", err)
	return nil
}

// JSONFormatter outputs JSON.
type JSONFormatter struct{}

// FormatRecord formats an ingested session as JSON.
func (f *JSONFormatter) FormatRecord(w io.Writer, session retrace.Session) error {
	return writeJSON(w, session)
}

// FormatSessionList formats list results as JSON.
func (f *JSONFormatter) FormatSessionList(w io.Writer, result *retrace.ListResult) error {
	return writeJSON(w, result)
}

// FormatSession formats a single session as JSON.
func (f *JSONFormatter) FormatSession(w io.Writer, session retrace.Session) error {
	return writeJSON(w, session)
}

// FormatDelete formats delete results as JSON.
func (f *JSONFormatter) FormatDelete(w io.Writer, results []DeleteResult) error {
	// Convert errors to strings for JSON output
	type jsonResult struct {
		ID      string `json:"id"`
		Deleted bool   `json:"deleted"`
		Error   string `json:"error,omitempty"`
	}

	output := struct {
		Results []jsonResult `json:"results"`
	}{
		Results: make([]jsonResult, len(results)),
	}

	for i, r := range results {
		jr := jsonResult{
			ID:      r.ID.String(),
			Deleted: r.Deleted,
		}
		if r.Err != nil {
			jr.Error = r.Err.Error()
		}
		output.Results[i] = jr
	}

	return writeJSON(w, output)
}

// FormatDownload formats download result as JSON.
func (f *JSONFormatter) FormatDownload(w io.Writer, result *DownloadResult) error {
	return writeJSON(w, result)
}

// FormatAttach formats an attachment upload as JSON.
func (f *JSONFormatter) FormatAttach(w io.Writer, attachment retrace.Attachment) error {
	return writeJSON(w, attachment)
}

// FormatShare formats a share link as JSON.
func (f *JSONFormatter) FormatShare(w io.Writer, result ShareResult) error {
	return writeJSON(w, result)
}

// FormatBlobList formats blob list results as JSON.
func (f *JSONFormatter) FormatBlobList(w io.Writer, result *blob.ListResult) error {
	return writeJSON(w, result)
}

// FormatPurge formats a purge result as JSON.
func (f *JSONFormatter) FormatPurge(w io.Writer, prefix string, deleted int) error {
	output := struct {
		Prefix  string `json:"prefix"`
		Deleted int    `json:"deleted"`
	}{
		Prefix:  prefix,
		Deleted: deleted,
	}
	return writeJSON(w, output)
}

// FormatError formats an error as JSON.
func (f *JSONFormatter) FormatError(w io.Writer, err error) error {
	output := struct {
		Error string `json:"error"`
	}{
		Error: err.Error(),
	}
	return writeJSON(w, output)
}

// writeJSON writes a value as indented JSON.
func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// formatSize formats bytes as human-readable size.
func formatSize(bytes int64) string {
	const (
		KB = 1024
		MB = KB * 1024
		GB = MB * 1024
		TB = GB * 1024
	)

	switch {
	case bytes >= TB:
		return fmt.Sprintf("%.1f TB", float64(bytes)/TB)
	case bytes >= GB:
		return fmt.Sprintf("%.1f GB", float64(bytes)/GB)
	case bytes >= MB:
		return fmt.Sprintf("%.1f MB", float64(bytes)/MB)
	case bytes >= KB:
		return fmt.Sprintf("%.1f KB", float64(bytes)/KB)
	default:
		return fmt.Sprintf("%d B", bytes)
	}
}

// FormatProfileList formats a list of profiles as human-readable text.
func (f *HumanFormatter) FormatProfileList(w io.Writer, profiles []Profile, defaultName string, showSecrets bool) error {
	// Calculate column widths
	maxNameLen := 4   // "NAME"
	maxServerLen := 6 // "SERVER"
	for i := range profiles {
		if len(profiles[i].Name) > maxNameLen {
			maxNameLen = len(profiles[i].Name)
		}
		if len(profiles[i].Server) > maxServerLen {
			maxServerLen = len(profiles[i].Server)
		}
	}
	if maxNameLen > 20 {
		maxNameLen = 20
	}
	if maxServerLen > 50 {
		maxServerLen = 50
	}

	// Print header
	_, _ = fmt.Fprintf(w, "  %-*s  %-*s  %s\n", maxNameLen, "NAME", maxServerLen, "SERVER", "INGEST KEY")
	_, _ = fmt.Fprintf(w, "  %s  %s  %s\n", strings.Repeat("-", maxNameLen), strings.Repeat("-", maxServerLen), strings.Repeat("-", 20))

	// Print profiles
	for i := range profiles {
		p := &profiles[i]
		marker := " "
		if p.Name == defaultName {
			marker = "*"
		}

		name := p.Name
		if len(name) > maxNameLen {
			name = name[:maxNameLen-3] + "..."
		}

		server := p.Server
		if len(server) > maxServerLen {
			server = server[:maxServerLen-3] + "..."
		}

		ingestKey := maskSecret(p.IngestKey, showSecrets)

		_, _ = fmt.Fprintf(w, "%s %-*s  %-*s  %s\n", marker, maxNameLen, name, maxServerLen, server, ingestKey)
	}

	return nil
}

// FormatProfileShow formats a single profile as human-readable text.
func (f *HumanFormatter) FormatProfileShow(w io.Writer, profile Profile, isDefault, showSecrets bool) error {
	_, _ = fmt.Fprintf(w, "Name:           %s", profile.Name)
	if isDefault {
		_, _ = fmt.Fprintf(w, " (default)")
	}
	_, _ = fmt.Fprintln(w)
	_, _ = fmt.Fprintf(w, "Server:         %s\n", profile.Server)
	_, _ = fmt.Fprintf(w, "Ingest Key:     %s\n", maskSecret(profile.IngestKey, showSecrets))
	_, _ = fmt.Fprintf(w, "Admin User:     %s\n", valueOrUnset(profile.AdminUser))
	_, _ = fmt.Fprintf(w, "Admin Password: %s\n", maskSecret(profile.AdminPassword, showSecrets))
	return nil
}

// FormatProfileList formats a list of profiles as JSON.
func (f *JSONFormatter) FormatProfileList(w io.Writer, profiles []Profile, defaultName string, showSecrets bool) error {
	type jsonProfile struct {
		Name          string `json:"name"`
		Server        string `json:"server"`
		IngestKey     string `json:"ingest_key,omitempty"`
		AdminUser     string `json:"admin_user,omitempty"`
		AdminPassword string `json:"admin_password,omitempty"`
		Default       bool   `json:"default,omitempty"`
	}

	output := struct {
		Profiles []jsonProfile `json:"profiles"`
	}{
		Profiles: make([]jsonProfile, len(profiles)),
	}

	for i := range profiles {
		p := &profiles[i]
		jp := jsonProfile{
			Name:      p.Name,
			Server:    p.Server,
			AdminUser: p.AdminUser,
			Default:   p.Name == defaultName,
		}
		if showSecrets {
			jp.IngestKey = p.IngestKey
			jp.AdminPassword = p.AdminPassword
		} else {
			jp.IngestKey = maskSecret(p.IngestKey, false)
			jp.AdminPassword = maskSecret(p.AdminPassword, false)
		}
		output.Profiles[i] = jp
	}

	return writeJSON(w, output)
}

// FormatProfileShow formats a single profile as JSON.
func (f *JSONFormatter) FormatProfileShow(w io.Writer, profile Profile, isDefault, showSecrets bool) error {
	output := struct {
		Name          string `json:"name"`
		Server        string `json:"server"`
		IngestKey     string `json:"ingest_key"`
		AdminUser     string `json:"admin_user"`
		AdminPassword string `json:"admin_password"`
		Default       bool   `json:"default"`
	}{
		Name:      profile.Name,
		Server:    profile.Server,
		AdminUser: profile.AdminUser,
		Default:   isDefault,
	}

	if showSecrets {
		output.IngestKey = profile.IngestKey
		output.AdminPassword = profile.AdminPassword
	} else {
		output.IngestKey = maskSecret(profile.IngestKey, false)
		output.AdminPassword = maskSecret(profile.AdminPassword, false)
	}

	return writeJSON(w, output)
}

// valueOrUnset returns the value, or a placeholder when empty.
func valueOrUnset(v string) string {
	if v == "" {
		return "(not set)"
	}
	return v
}

// maskSecret masks a secret string, showing only first 4 and last 4 characters.
// If showSecrets is true, returns the original value.
// If the secret is too short, returns all asterisks.
func maskSecret(secret string, showSecrets bool) string {
	if showSecrets {
		return secret
	}
	if secret == "" {
		return "(not set)"
	}
	if len(secret) <= 8 {
		return "********"
	}
	return secret[:4] + "..." + secret[len(secret)-4:]
}
