// Package textutil provides the string handling shared by matching and asset
// naming.
//
// The primary use cases are:
//   - Normalizing identifying values and filenames into lookup tokens
//   - Stripping extensions and directory prefixes from archive entry names
//   - Sanitizing values into object-key and filesystem-safe tokens
//
// Normalization trims surrounding whitespace and applies Unicode-aware
// lowercasing so that "102.JPG" and " 102.jpg" resolve to the same token.
package textutil
