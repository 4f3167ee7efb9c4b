// Package job defines the Job model, its status vocabulary, and the JSON
// record codec. Legacy field spellings from earlier record versions are
// migrated inside Decode so the rest of the system only ever sees the
// current schema.
package job
