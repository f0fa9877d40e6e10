// Package export inspects image files that GIMP wrote to disk.
//
// GIMP and this server run on the same machine, so after asking GIMP to save
// an image the server can open the result itself and report its dimensions,
// format and pixel layout. Nothing in this package modifies pixels.
package export
