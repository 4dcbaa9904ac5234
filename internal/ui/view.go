package ui

import (
	"html/template"

	"github.com/example/animal-classify/internal/classifier"
	"github.com/example/animal-classify/internal/datauri"
)

// Phase is the upload lifecycle shown on the page.
type Phase string

const (
	PhaseIdle      Phase = "idle"
	PhaseUploading Phase = "uploading"
	PhaseSucceeded Phase = "succeeded"
	PhaseFailed    Phase = "failed"
)

// FailureMessage is shown when the proxy could not classify an image.
const FailureMessage = "Failed to classify image"

// View is the page state for one visitor. Every upload is tagged with a
// sequence number and only answers for the latest upload are applied, so an
// overlapping slow response cannot overwrite a newer selection. The page
// script implements the same rules in the browser.
//
// A View is not safe for concurrent use.
type View struct {
	Phase          Phase
	Seq            uint64
	Image          string
	Classification string
	AnimalInfo     *string
	IsDangerous    *bool
	Error          string
}

// NewView returns an idle view.
func NewView() *View {
	return &View{Phase: PhaseIdle}
}

// Begin starts an upload of image and returns its sequence number. The
// previous result and error are cleared.
func (v *View) Begin(image string) uint64 {
	v.Seq++
	v.Phase = PhaseUploading
	v.Image = image
	v.Classification = ""
	v.AnimalInfo = nil
	v.IsDangerous = nil
	v.Error = ""
	return v.Seq
}

// Resolve applies res for upload seq. It returns false, leaving the view
// untouched, when seq is not the latest upload.
func (v *View) Resolve(seq uint64, res *classifier.Result) bool {
	if seq != v.Seq || v.Phase != PhaseUploading || res == nil {
		return false
	}
	v.Phase = PhaseSucceeded
	v.Classification = res.Classification
	if res.Classification == classifier.NoAnimalDetected {
		v.AnimalInfo = nil
		v.IsDangerous = nil
		return true
	}
	v.AnimalInfo = res.AnimalInfo
	v.IsDangerous = res.IsDangerous
	return true
}

// Fail marks upload seq as failed with message. Stale uploads are ignored.
func (v *View) Fail(seq uint64, message string) bool {
	if seq != v.Seq || v.Phase != PhaseUploading {
		return false
	}
	if message == "" {
		message = FailureMessage
	}
	v.Phase = PhaseFailed
	v.Error = message
	return true
}

func (v *View) StatusText() string {
	switch v.Phase {
	case PhaseIdle:
		return "Choose an image to classify."
	case PhaseUploading:
		return "Classifying…"
	default:
		return ""
	}
}

// PreviewURL returns the uploaded image as a trusted URL for the img tag, or
// an empty URL when the upload is not an image.
func (v *View) PreviewURL() template.URL {
	if v.Image == "" {
		return ""
	}
	info, err := datauri.Parse(v.Image)
	if err != nil || !info.IsImage() {
		return ""
	}
	return template.URL(v.Image)
}

func (v *View) HasClassification() bool {
	return v.Phase == PhaseSucceeded && v.Classification != ""
}

// ShowDetails reports whether animal info and the danger line are rendered.
func (v *View) ShowDetails() bool {
	return v.HasClassification() && v.AnimalInfo != nil && *v.AnimalInfo != ""
}

func (v *View) AnimalInfoText() string {
	if v.AnimalInfo == nil {
		return ""
	}
	return *v.AnimalInfo
}

// DangerLabel renders the danger flag; an unknown flag reads as not dangerous.
func (v *View) DangerLabel() string {
	if v.IsDangerous != nil && *v.IsDangerous {
		return "dangerous"
	}
	return "not dangerous"
}
