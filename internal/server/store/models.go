package store

import "time"

// Collection caps. Inserts happen at the front; anything past the cap
// falls off the tail.
const (
	MaxTexts = 5
	MaxFiles = 5
	MaxURLs  = 20
)

// TextRecord is one synced text snippet.
type TextRecord struct {
	ID        string    `json:"id"`
	Content   string    `json:"content"`
	Type      string    `json:"type"`
	Timestamp time.Time `json:"timestamp"`
	Size      int64     `json:"size"`
	UserAgent string    `json:"user_agent"`
}

// FileRecord is the metadata for one uploaded file. The blob itself lives
// in the upload directory under StoredName.
type FileRecord struct {
	ID           string    `json:"id"`
	OriginalName string    `json:"original_name"`
	StoredName   string    `json:"stored_name"`
	Type         string    `json:"type"`
	Timestamp    time.Time `json:"timestamp"`
	Size         int64     `json:"size"`
	Extension    string    `json:"extension"`
	UserAgent    string    `json:"user_agent"`
}

// URLRecord is one shortened URL.
type URLRecord struct {
	ID        string    `json:"id"`
	LongURL   string    `json:"long_url"`
	ShortCode string    `json:"short_code"`
	Type      string    `json:"type"`
	Timestamp time.Time `json:"timestamp"`
	Clicks    int64     `json:"clicks"`
	UserAgent string    `json:"user_agent"`
}

// Document is the whole persisted state: four collections serialized as a
// single JSON file.
type Document struct {
	Texts      []TextRecord `json:"texts"`
	Files      []FileRecord `json:"files"`
	URLs       []URLRecord  `json:"urls"`
	URLCounter int64        `json:"url_counter"`
}

// PushText inserts a record at the front of Texts and truncates to MaxTexts.
func (d *Document) PushText(rec TextRecord) {
	d.Texts = append([]TextRecord{rec}, d.Texts...)
	if len(d.Texts) > MaxTexts {
		d.Texts = d.Texts[:MaxTexts]
	}
}

// PushFile inserts a record at the front of Files and truncates to MaxFiles.
func (d *Document) PushFile(rec FileRecord) {
	d.Files = append([]FileRecord{rec}, d.Files...)
	if len(d.Files) > MaxFiles {
		d.Files = d.Files[:MaxFiles]
	}
}

// PushURL inserts a record at the front of URLs and truncates to MaxURLs.
func (d *Document) PushURL(rec URLRecord) {
	d.URLs = append([]URLRecord{rec}, d.URLs...)
	if len(d.URLs) > MaxURLs {
		d.URLs = d.URLs[:MaxURLs]
	}
}

// FindURLByLong returns the first URL record whose long URL matches exactly.
func (d *Document) FindURLByLong(longURL string) (URLRecord, bool) {
	for _, u := range d.URLs {
		if u.LongURL == longURL {
			return u, true
		}
	}
	return URLRecord{}, false
}

// FindFile returns the file record with the given id.
func (d *Document) FindFile(id string) (FileRecord, bool) {
	for _, f := range d.Files {
		if f.ID == id {
			return f, true
		}
	}
	return FileRecord{}, false
}
