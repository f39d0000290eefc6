package models

import "time"

// Material is a file attached to a course and optionally to one of its lessons.
type Material struct {
	ID          string    `db:"id" json:"id"`
	CourseID    string    `db:"course_id" json:"course_id"`
	LessonID    *string   `db:"lesson_id" json:"lesson_id,omitempty"`
	Name        string    `db:"name" json:"name"`
	Description *string   `db:"description" json:"description,omitempty"`
	FileURL     string    `db:"file_url" json:"file_url"`
	FileType    string    `db:"file_type" json:"file_type"`
	FileSize    int64     `db:"file_size" json:"file_size"`
	StorageKey  *string   `db:"storage_key" json:"-"`
	UploadedBy  string    `db:"uploaded_by" json:"uploaded_by"`
	IsPublic    bool      `db:"is_public" json:"is_public"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
}

// MaterialDetail carries the uploader's display name.
type MaterialDetail struct {
	Material
	UploaderName *string `db:"uploader_name" json:"uploader_name,omitempty"`
}

// MaterialDownload is a signed link to an uploaded material file.
type MaterialDownload struct {
	URL       string    `json:"url"`
	ExpiresAt time.Time `json:"expires_at"`
}
