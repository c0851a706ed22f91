package services

import (
	"fmt"
	"net/http"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

// MaxFileSize is the largest accepted upload.
const MaxFileSize = 5 << 20

// AllowedFileTypes lists the accepted MIME types.
var AllowedFileTypes = []string{
	"image/jpeg",
	"image/png",
	"image/webp",
	"video/mp4",
	"application/pdf",
}

// FileInput is an uploaded file as received from the client.
type FileInput struct {
	Name        string
	ContentType string
	Data        []byte
}

// SubmissionInput is the raw upload form.
type SubmissionInput struct {
	Title       string
	Description string
	Tags        []string
	IsPaid      bool
	File        FileInput
}

// Submission is a validated upload ready for storage.
type Submission struct {
	Title       string
	Description string
	Tags        []string
	IsPaid      bool
	FileName    string
	FileType    string
	FileSize    int64
	Data        []byte
}

// EditInput carries the user-editable fields of a record.
type EditInput struct {
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Tags        []string `json:"tags"`
	IsPaid      bool     `json:"is_paid"`
}

type submissionRules struct {
	Title       string   `json:"title" validate:"min=5"`
	Description string   `json:"description" validate:"min=20"`
	Tags        []string `json:"tags" validate:"max=5"`
	FileSize    int64    `json:"file" validate:"gt=0,lte=5242880"`
	FileType    string   `json:"file_type" validate:"oneof=image/jpeg image/png image/webp video/mp4 application/pdf"`
}

type editRules struct {
	Title       string   `json:"title" validate:"min=5"`
	Description string   `json:"description" validate:"min=20"`
	Tags        []string `json:"tags" validate:"max=5"`
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// BuildSubmission validates the form and packages it. It has no side effects.
func BuildSubmission(in SubmissionInput) (Submission, error) {
	sub := Submission{
		Title:       strings.TrimSpace(in.Title),
		Description: strings.TrimSpace(in.Description),
		Tags:        NormalizeTags(in.Tags),
		IsPaid:      in.IsPaid,
		FileName:    in.File.Name,
		FileType:    DetectFileType(in.File.ContentType, in.File.Data),
		FileSize:    int64(len(in.File.Data)),
		Data:        in.File.Data,
	}
	err := check(submissionRules{
		Title:       sub.Title,
		Description: sub.Description,
		Tags:        sub.Tags,
		FileSize:    sub.FileSize,
		FileType:    sub.FileType,
	})
	if err != nil {
		return Submission{}, err
	}
	return sub, nil
}

// ValidateEdit normalizes an edit and checks it against the same text rules
// as a submission.
func ValidateEdit(in EditInput) (EditInput, error) {
	in.Title = strings.TrimSpace(in.Title)
	in.Description = strings.TrimSpace(in.Description)
	in.Tags = NormalizeTags(in.Tags)
	if err := check(editRules{Title: in.Title, Description: in.Description, Tags: in.Tags}); err != nil {
		return EditInput{}, err
	}
	return in, nil
}

// DetectFileType returns the declared MIME type, sniffing the content when
// the declaration is missing or generic.
func DetectFileType(declared string, data []byte) string {
	declared = strings.ToLower(strings.TrimSpace(strings.SplitN(declared, ";", 2)[0]))
	if declared != "" && declared != "application/octet-stream" {
		return declared
	}
	if len(data) == 0 {
		return declared
	}
	sniffed := http.DetectContentType(data)
	return strings.TrimSpace(strings.SplitN(sniffed, ";", 2)[0])
}

func check(rules any) error {
	err := validate.Struct(rules)
	if err == nil {
		return nil
	}
	verrs, ok := err.(validator.ValidationErrors)
	if !ok {
		return fmt.Errorf("%w: %w", ErrValidation, err)
	}
	out := make(ValidationErrors, 0, len(verrs))
	for _, fe := range verrs {
		out = append(out, FieldError{Field: fe.Field(), Message: fieldMessage(fe)})
	}
	return out
}

func fieldMessage(fe validator.FieldError) string {
	switch fe.Field() {
	case "title":
		return "title must be at least 5 characters"
	case "description":
		return "description must be at least 20 characters"
	case "tags":
		return fmt.Sprintf("at most %d tags are allowed", MaxTags)
	case "file":
		if fe.Tag() == "gt" {
			return "file is required"
		}
		return "file must be 5MB or smaller"
	case "file_type":
		return fmt.Sprintf("file type %q is not supported", fe.Value())
	}
	return fmt.Sprintf("%s is invalid", fe.Field())
}
