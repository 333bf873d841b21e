// Package retrieval ranks stored chunks against a query.
//
// The query text is embedded with the corpus embedding model and compared to
// every chunk in the scope by cosine similarity. Ranking is deterministic:
// descending score, with ties broken on ascending ordinal and then document
// id. Scopes never leak into one another.
package retrieval
