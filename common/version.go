/*
 * This file is subject to the terms and conditions defined in
 * file 'LICENSE.md', which is part of this source code package.
 */

// Package common hosts the logging and version plumbing shared by every
// subpackage of this crypt core.
package common

import "time"

// Version identifies this crypt core's own release, independent of the PDF
// versions (1.4 through 2.0) or /V, /R handler versions its security package
// understands -- those are parsed values, this is build metadata.
const Version = "0.1.0"

const (
	releaseYear  = 2026
	releaseMonth = time.January
	releaseDay   = 1
)

// ReleasedAt is the timestamp for Version, UTC midnight of the release day.
var ReleasedAt = time.Date(releaseYear, releaseMonth, releaseDay, 0, 0, 0, 0, time.UTC)
