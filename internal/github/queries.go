package github

const queryRepoView = `
query RepoView($owner: String!, $repo: String!, $issuesSince: DateTime!, $labels: [String!]) {
  repository(owner: $owner, name: $repo) {
    description
    homepageUrl
    stargazerCount
    repositoryTopics(first: 25) {
      nodes {
        topic {
          name
        }
      }
    }
    languages(first: 25, orderBy: {field: SIZE, direction: DESC}) {
      nodes {
        name
      }
    }
    issues(first: 100, states: OPEN, orderBy: {field: UPDATED_AT, direction: DESC}, filterBy: {since: $issuesSince, labels: $labels}) {
      nodes {
        databaseId
        title
        url
        number
        publishedAt
        labels(first: 20) {
          nodes {
            name
          }
        }
        closedByPullRequestsReferences(first: 1) {
          nodes {
            number
          }
        }
      }
    }
  }
}
`
