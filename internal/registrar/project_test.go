package registrar

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func TestProjectSetDigest(t *testing.T) {
	t.Parallel()

	t.Run("stable across recomputation", func(t *testing.T) {
		t.Parallel()
		project := &Project{
			Name:        "project1",
			Description: "description",
			Repositories: []Repository{
				{Name: "repo1", URL: "https://github.com/org1/repo1"},
			},
		}
		project.SetDigest()
		first := project.Digest
		project.SetDigest()
		assert.Equal(t, first, project.Digest)
		assert.NotEmpty(t, project.Digest)
	})

	t.Run("known digest from data file", func(t *testing.T) {
		t.Parallel()
		data, err := os.ReadFile("testdata/cncf.yaml")
		require.NoError(t, err)

		var projects []*Project
		require.NoError(t, yaml.Unmarshal(data, &projects))
		require.Len(t, projects, 1)

		projects[0].SetDigest()
		assert.Equal(t, "fa26e52492428be17cb753516b2f8aabc7b9ceb43c3f3d5706ad155ca7747840", projects[0].Digest)
	})

	t.Run("maintainers wanted takes part in the digest", func(t *testing.T) {
		t.Parallel()
		title := "Contributing"
		project := &Project{Name: "project1", Description: "description"}
		project.SetDigest()
		withoutMW := project.Digest

		project.MaintainersWanted = &MaintainersWanted{
			Enabled:  true,
			Links:    []Link{{Title: &title, URL: "https://project1.io/contributing"}},
			Contacts: []Contact{{GitHubHandle: "maintainer1"}},
		}
		project.SetDigest()
		assert.NotEqual(t, withoutMW, project.Digest)
	})
}

func TestRemoveExcludedRepositories(t *testing.T) {
	t.Parallel()

	project := &Project{
		Name:        "project1",
		Description: "description",
		Repositories: []Repository{
			{Name: "repo1", URL: "https://github.com/org1/repo1"},
			{Name: "repo2", URL: "https://github.com/org1/repo2", Exclude: []string{"clotributor"}},
			{Name: "repo3", URL: "https://github.com/org1/repo3", Exclude: []string{"other-service"}},
		},
	}
	project.RemoveExcludedRepositories()

	names := make([]string, 0, len(project.Repositories))
	for _, repo := range project.Repositories {
		names = append(names, repo.Name)
	}
	assert.Equal(t, []string{"repo1", "repo3"}, names)
}

func TestDigestUnchangedByExcludedRepositories(t *testing.T) {
	t.Parallel()

	// A project listing an excluded repository must digest identically to
	// one that never listed it
	withExcluded := &Project{
		Name:        "project1",
		Description: "description",
		Repositories: []Repository{
			{Name: "repo1", URL: "https://github.com/org1/repo1"},
			{Name: "repo2", URL: "https://github.com/org1/repo2", Exclude: []string{"clotributor"}},
		},
	}
	withExcluded.RemoveExcludedRepositories()
	withExcluded.SetDigest()

	without := &Project{
		Name:        "project1",
		Description: "description",
		Repositories: []Repository{
			{Name: "repo1", URL: "https://github.com/org1/repo1"},
		},
	}
	without.SetDigest()

	assert.Equal(t, without.Digest, withExcluded.Digest)
}

func TestProjectYAMLParsing(t *testing.T) {
	t.Parallel()

	data := []byte(`
- name: project1
  display_name: Project One
  description: description
  maturity: incubating
  maintainers_wanted:
    enabled: true
    links:
      - title: Contributing
        url: https://project1.io/contributing
    contacts:
      - github_handle: maintainer1
  repositories:
    - name: repo1
      url: https://github.com/org1/repo1
      exclude:
        - clotributor
      issues_filter_label: help wanted
`)
	var projects []*Project
	require.NoError(t, yaml.Unmarshal(data, &projects))
	require.Len(t, projects, 1)

	project := projects[0]
	assert.Equal(t, "project1", project.Name)
	require.NotNil(t, project.DisplayName)
	assert.Equal(t, "Project One", *project.DisplayName)
	require.NotNil(t, project.Maturity)
	assert.Equal(t, "incubating", *project.Maturity)
	require.NotNil(t, project.MaintainersWanted)
	assert.True(t, project.MaintainersWanted.Enabled)
	require.Len(t, project.MaintainersWanted.Links, 1)
	require.NotNil(t, project.MaintainersWanted.Links[0].Title)
	assert.Equal(t, "Contributing", *project.MaintainersWanted.Links[0].Title)
	require.Len(t, project.MaintainersWanted.Contacts, 1)
	assert.Equal(t, "maintainer1", project.MaintainersWanted.Contacts[0].GitHubHandle)
	require.Len(t, project.Repositories, 1)
	assert.Equal(t, []string{"clotributor"}, project.Repositories[0].Exclude)
	require.NotNil(t, project.Repositories[0].IssuesFilterLabel)
	assert.Equal(t, "help wanted", *project.Repositories[0].IssuesFilterLabel)
}
