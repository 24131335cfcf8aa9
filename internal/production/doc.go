// Package production records research output (articles, theses, patents,
// software) together with its ordered author list.
//
// A production may belong to a project; deleting the project keeps the
// production and clears the link. Record IDs are supplied by the caller,
// typically a DOI or an institutional registry number.
package production
