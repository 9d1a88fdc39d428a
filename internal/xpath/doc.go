// Package xpath resolves a small path language against markup files and
// rewrites attribute values in place.
//
// Resolution parses the file into a tree of element and comment nodes that
// records where every opening tag sits in the source. Patching never
// re-serializes that tree: for each resolved element a pattern reproducing
// its opening tag is matched against the original text and only the bytes
// of the addressed attribute value are replaced, so formatting, attribute
// order, quoting and comments survive untouched.
package xpath
