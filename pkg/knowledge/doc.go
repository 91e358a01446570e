// Package knowledge turns uploaded files into summarized documents and
// answers questions grounded in them.
//
// A Session owns one user's documents and chat history. The Pipeline drives
// ingestion (save, extract, summarize, record) and chat turns against a
// Session, one operation at a time.
package knowledge
