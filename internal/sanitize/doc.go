// Package sanitize normalizes untrusted form input into a safe canonical string
// before it is validated or sent to the parking backend.
//
// # Pipeline
//
// Input applies its steps in a fixed order. Each step is switched by Options:
//
//  1. Trim surrounding whitespace (on unless TrimWhitespace is set to false)
//  2. Remove NUL bytes
//  3. Strip tags (StripTags) or entity-escape & < > " ' / (unless AllowHTML)
//  4. Remove javascript: URIs, inline event handlers and <script> blocks
//  5. Remove emoji (RemoveEmojis)
//  6. Lowercase (ConvertToLowercase)
//  7. Remove everything but word characters and spaces (RemoveSpecialChars)
//  8. Remove characters matched by Disallowed
//  9. Truncate to MaxLength runes
//
// # Presets
//
// Field sanitizers such as Email, Name and LicensePlate are fixed option sets
// over the same pipeline. Password is the exception: it only removes control
// bytes, since a secret must reach the backend exactly as typed.
//
// Every function in this package is total. Empty and non-string input yields "".
package sanitize
