package caldav

// Calendar is a calendar collection on the CalDAV server
type Calendar struct {
	Path        string
	DisplayName string
	Description string
}

// MirrorResult summarizes one mirror run
type MirrorResult struct {
	Put     int
	Removed int
}
