package registrar

import (
	"slices"

	"github.com/cncf/clotributor/internal/digest"
)

// serviceTag is the reserved tag projects use in a repository's exclusion
// list to keep this service from tracking it.
const serviceTag = "clotributor"

// Foundation is a foundation registered in the catalogue, pointing to the
// remote data file that lists its projects.
type Foundation struct {
	FoundationID string
	DataURL      string
}

// Project is a project as declared in a foundation's data file.
type Project struct {
	Name              string             `yaml:"name" json:"name"`
	DisplayName       *string            `yaml:"display_name" json:"display_name,omitempty"`
	Description       string             `yaml:"description" json:"description"`
	LogoURL           *string            `yaml:"logo_url" json:"logo_url,omitempty"`
	LogoDarkURL       *string            `yaml:"logo_dark_url" json:"logo_dark_url,omitempty"`
	DevstatsURL       *string            `yaml:"devstats_url" json:"devstats_url,omitempty"`
	AcceptedAt        *string            `yaml:"accepted_at" json:"accepted_at,omitempty"`
	Maturity          *string            `yaml:"maturity" json:"maturity,omitempty"`
	MaintainersWanted *MaintainersWanted `yaml:"maintainers_wanted" json:"maintainers_wanted,omitempty"`
	Digest            string             `yaml:"-" json:"digest,omitempty"`
	Repositories      []Repository       `yaml:"repositories" json:"repositories"`
}

// Repository is a project's repository as declared in the data file.
type Repository struct {
	Name              string   `yaml:"name" json:"name"`
	URL               string   `yaml:"url" json:"url"`
	Exclude           []string `yaml:"exclude" json:"exclude,omitempty"`
	IssuesFilterLabel *string  `yaml:"issues_filter_label" json:"issues_filter_label,omitempty"`
}

// MaintainersWanted indicates the project is looking for maintainers, with
// some optional reference links and contacts.
type MaintainersWanted struct {
	Enabled  bool      `yaml:"enabled" json:"enabled"`
	Links    []Link    `yaml:"links" json:"links,omitempty"`
	Contacts []Contact `yaml:"contacts" json:"contacts,omitempty"`
}

// Link holds some information about a link.
type Link struct {
	Title *string `yaml:"title" json:"title"`
	URL   string  `yaml:"url" json:"url"`
}

// Contact holds some information about a contact.
type Contact struct {
	GitHubHandle string `yaml:"github_handle" json:"github_handle"`
}

// RemoveExcludedRepositories drops the repositories whose exclusion list
// names this service. Must run before computing the project's digest so that
// excluded repositories cannot cause churn.
func (p *Project) RemoveExcludedRepositories() {
	p.Repositories = slices.DeleteFunc(p.Repositories, func(r Repository) bool {
		return slices.Contains(r.Exclude, serviceTag)
	})
}

// SetDigest computes and sets the project's digest over every field except
// the digest itself. Absent optional fields are omitted from the encoding
// entirely, except a link's title, which always carries its discriminator
// byte. This matches the historical wire form other deployments compare
// against.
func (p *Project) SetDigest() {
	var e digest.Encoder
	e.String(p.Name)
	encodeOptionalString(&e, p.DisplayName)
	e.String(p.Description)
	encodeOptionalString(&e, p.LogoURL)
	encodeOptionalString(&e, p.LogoDarkURL)
	encodeOptionalString(&e, p.DevstatsURL)
	encodeOptionalString(&e, p.AcceptedAt)
	encodeOptionalString(&e, p.Maturity)
	if mw := p.MaintainersWanted; mw != nil {
		e.Some()
		e.Bool(mw.Enabled)
		if mw.Links != nil {
			e.Some()
			e.Len(len(mw.Links))
			for _, link := range mw.Links {
				e.OptionalString(link.Title)
				e.String(link.URL)
			}
		}
		if mw.Contacts != nil {
			e.Some()
			e.Len(len(mw.Contacts))
			for _, contact := range mw.Contacts {
				e.String(contact.GitHubHandle)
			}
		}
	}
	e.Len(len(p.Repositories))
	for _, repo := range p.Repositories {
		e.String(repo.Name)
		e.String(repo.URL)
		if repo.Exclude != nil {
			e.Some()
			e.Strings(repo.Exclude)
		}
		encodeOptionalString(&e, repo.IssuesFilterLabel)
	}
	p.Digest = e.Sum()
}

// encodeOptionalString appends an optional field that is omitted entirely
// when absent.
func encodeOptionalString(e *digest.Encoder, s *string) {
	if s != nil {
		e.Some()
		e.String(*s)
	}
}
