package docdb

// Type selects the document database implementation.
type Type string

// TypeMongoDB is the MongoDB-backed implementation.
const TypeMongoDB Type = "mongodb"
