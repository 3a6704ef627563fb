package driver

var indexQueries = []string{
	"CREATE INDEX ON :Article(id);",
	"CREATE INDEX ON :Article(medium);",
	"CREATE INDEX ON :Medium(name);",
}

const (
	QueryMediaQuery = `
		MATCH (m:Medium)
		WHERE m.name IS NOT NULL
		RETURN DISTINCT m.name AS name
	`

	// QueryArticlesQuery applies every filter criterion as an optional
	// predicate so one statement serves all filter combinations.
	QueryArticlesQuery = `
		MATCH (a:Article)
		WHERE (size($media) = 0 OR a.medium IN $media)
			AND ($from_date IS NULL OR a.publication_date >= $from_date)
			AND ($to_date IS NULL OR a.publication_date <= $to_date)
			AND ($title = '' OR toLower(a.title) CONTAINS toLower($title))
			AND ($min_letters <= 0 OR (a.content IS NOT NULL AND size(a.content) >= $min_letters))
			AND (NOT $relevant_only OR a.relevant = true)
		RETURN a.id AS id,
			a.title AS title,
			a.content AS content,
			a.medium AS medium,
			a.publication_date AS publication_date,
			a.author AS author,
			a.relevant AS relevant
		ORDER BY a.id
	`

	SaveArticleQuery = `
		MERGE (m:Medium {name: $medium})
		MERGE (a:Article {id: $id})
		SET a.title = $title,
			a.content = $content,
			a.medium = $medium,
			a.publication_date = $publication_date,
			a.author = $author,
			a.relevant = $relevant
		MERGE (a)-[:PUBLISHED_IN]->(m)
		RETURN a.id AS id
	`

	DeleteArticlesQuery = `
		MATCH (a:Article)
		WHERE a.id IN $ids
		DETACH DELETE a
	`
)
