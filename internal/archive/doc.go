// Package archive extracts the tar, tar.gz and zip containers accepted as
// rich-media packages. Entry names are validated so a crafted archive
// cannot write outside its extraction directory.
package archive
