// Package diag records the gaps graph construction recovered from:
// failed substitutions, abstract dispatch, missing bodies, callees that
// could not be classified, report files that could not be written.
//
// None of these abort a build. Producers hold a Reporter and emit
// through ReportError/ReportWarning/ReportInfo; the CLI collects into a
// Bag behind a DedupReporter, since one call site is revisited once per
// instantiation of its caller.
package diag
