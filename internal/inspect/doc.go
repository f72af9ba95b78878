// Package inspect turns extracted source fragments into checkable units and
// decides which alerts about them are worth reporting.
//
// An Inspectable owns the text sent to the checker and maps alert ranges
// back to file offsets. Comments and doc blocks are chunked so decoration
// never reaches the service; paragraphs and literals are sent verbatim.
//
// Reporting is filtered three ways: facultative alerts need ShowAdvanced,
// user exclusions drop matching content or categories, and each kind rejects
// alerts that fall inside markup it knows the service misreads.
package inspect
