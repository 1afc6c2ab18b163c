package tracker

import (
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/cncf/clotributor/internal/digest"
	"github.com/cncf/clotributor/internal/github"
)

// IssueArea categorises the part of the project an issue relates to.
type IssueArea string

// AreaDocs identifies documentation issues.
const AreaDocs IssueArea = "docs"

// IssueKind categorises the nature of an issue.
type IssueKind string

// Supported issue kinds.
const (
	KindBug         IssueKind = "bug"
	KindFeature     IssueKind = "feature"
	KindEnhancement IssueKind = "enhancement"
)

// IssueDifficulty estimates how hard an issue is to address.
type IssueDifficulty string

// Supported issue difficulties.
const (
	DifficultyEasy   IssueDifficulty = "easy"
	DifficultyMedium IssueDifficulty = "medium"
	DifficultyHard   IssueDifficulty = "hard"
)

// Repository is a tracked source repository as stored in the catalogue.
type Repository struct {
	RepositoryID      uuid.UUID
	Name              string
	Description       *string
	URL               string
	HomepageURL       *string
	Topics            []string
	Languages         []string
	Stars             *int32
	Digest            string
	IssuesFilterLabel *string
	ProjectName       string
	FoundationID      string
}

// UpdateGHData applies the snapshot fetched from GitHub onto the repository
// and recomputes its digest. It reports whether the digest changed.
func (r *Repository) UpdateGHData(snap *github.Repository) bool {
	r.Description = snap.Description
	r.HomepageURL = snap.HomepageURL
	r.Languages = snap.Languages
	stars := snap.StargazerCount
	r.Stars = &stars
	r.Topics = snap.Topics

	prevDigest := r.Digest
	r.UpdateDigest()
	return r.Digest != prevDigest
}

// UpdateDigest recomputes the repository's digest from its GitHub data.
func (r *Repository) UpdateDigest() {
	var e digest.Encoder
	e.OptionalString(r.Description)
	e.OptionalString(r.HomepageURL)
	e.OptionalStrings(r.Languages)
	e.OptionalStrings(r.Topics)
	e.OptionalInt32(r.Stars)
	r.Digest = e.Sum()
}

// Issue is a contributor-friendly issue as stored in the catalogue.
type Issue struct {
	IssueID         int64
	Title           string
	URL             string
	Number          int32
	Labels          []string
	PublishedAt     time.Time
	HasLinkedPRs    bool
	Digest          string
	Area            *IssueArea
	Kind            *IssueKind
	Difficulty      *IssueDifficulty
	MentorAvailable *bool
	Mentor          *string
	GoodFirstIssue  *bool
}

// UpdateDigest recomputes the issue's digest. Only the title, the labels and
// the linked pull requests flag take part in it: everything else is either
// immutable upstream or derived from the labels.
func (i *Issue) UpdateDigest() {
	var e digest.Encoder
	e.String(i.Title)
	e.Strings(i.Labels)
	e.Bool(i.HasLinkedPRs)
	i.Digest = e.Sum()
}

// PopulateFromLabels fills in the issue's area, kind, difficulty, mentorship
// and good first issue information from its labels. Rules are applied per
// label in order and the first match for each slot wins.
func (i *Issue) PopulateFromLabels() {
	for _, label := range i.Labels {
		// Area
		if strings.Contains(label, "docs") || strings.Contains(label, "documentation") {
			area := AreaDocs
			i.Area = &area
			continue
		}

		// Kind
		var kind IssueKind
		switch {
		case strings.Contains(label, "enhancement") || strings.Contains(label, "improvement"):
			kind = KindEnhancement
		case strings.Contains(label, "feature"):
			kind = KindFeature
		case strings.Contains(label, "bug"):
			kind = KindBug
		}
		if kind != "" {
			if i.Kind == nil {
				i.Kind = &kind
			}
			continue
		}

		// Difficulty
		var difficulty IssueDifficulty
		switch label {
		case "difficulty/easy", "level/easy":
			difficulty = DifficultyEasy
		case "difficulty/medium", "level/medium":
			difficulty = DifficultyMedium
		case "difficulty/hard", "level/hard":
			difficulty = DifficultyHard
		}
		if difficulty != "" {
			if i.Difficulty == nil {
				i.Difficulty = &difficulty
			}
			continue
		}

		// Mentor available
		if label == "mentor available" || label == "mentorship" {
			mentorAvailable := true
			i.MentorAvailable = &mentorAvailable
			continue
		}

		// Good first issue
		if label == "good first issue" {
			goodFirstIssue := true
			i.GoodFirstIssue = &goodFirstIssue
		}
	}
}

// TSTexts holds the weighted text streams used to build the issue's full
// text search document.
type TSTexts struct {
	WeightA string
	WeightB string
	WeightC string
}

// PrepareTSTexts assembles the text streams fed into the catalogue's full
// text search document for this issue.
func (i *Issue) PrepareTSTexts(repo *Repository) TSTexts {
	var description string
	if repo.Description != nil {
		description = *repo.Description
	}

	return TSTexts{
		WeightA: repo.ProjectName,
		WeightB: strings.TrimSpace(repo.FoundationID + " " + repo.Name + " " + description + " " +
			strings.Join(repo.Topics, " ") + " " + strings.Join(repo.Languages, " ")),
		WeightC: i.Title + " " + strings.Join(i.Labels, " "),
	}
}
