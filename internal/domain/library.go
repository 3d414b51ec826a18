package domain

// Book is a catalogue entry
type Book struct {
	Code      string
	Title     string
	Author    string
	Category  string
	Available int
}

// IsAvailable reports whether at least one copy is on the shelf
func (b Book) IsAvailable() bool {
	return b.Available > 0
}

// BookPage is one page of search results
type BookPage struct {
	Books      []Book
	Page       int
	TotalPages int
	TotalCount int
}

// Borrower holds the current issue of a book
type Borrower struct {
	Name      string
	Batch     string
	IssueDate string
	DueDate   string
}

// BookStatus is a book plus its current borrower, if issued
type BookStatus struct {
	Book
	IssuedTo *Borrower
}

// Loan is a book a student borrowed
type Loan struct {
	Code       string
	Title      string
	IssueDate  string
	ReturnDate string
}

// Student is a library member profile
type Student struct {
	ID       string
	Name     string
	Batch    string
	Photo    []byte
	Issued   []Loan
	Returned []Loan
}

// Transaction is one entry of a book's issue history
type Transaction struct {
	Name       string
	IssueDate  string
	ReturnDate string
}

// Returned reports whether the book came back
func (t Transaction) Returned() bool {
	return t.ReturnDate != ""
}

// Stats is the library-wide aggregate
type Stats struct {
	TotalBooks      int
	AvailableCopies int
	IssuedBooks     int
	Timestamp       string
}

// ReportKind selects an administrator analytics report
type ReportKind string

const (
	ReportTopBooks   ReportKind = "top_books"
	ReportTopReaders ReportKind = "top_readers"
	ReportOverdue    ReportKind = "overdue"
)

// Reports lists the available analytics reports in menu order
var Reports = []ReportKind{ReportTopBooks, ReportTopReaders, ReportOverdue}

// Valid reports whether the kind is a known report
func (k ReportKind) Valid() bool {
	for _, r := range Reports {
		if r == k {
			return true
		}
	}
	return false
}

// Title returns the human readable report name
func (k ReportKind) Title() string {
	switch k {
	case ReportTopBooks:
		return "Most issued books"
	case ReportTopReaders:
		return "Most active readers"
	case ReportOverdue:
		return "Overdue loans"
	default:
		return string(k)
	}
}

// ReportRow is a label/value line of a report
type ReportRow struct {
	Label string
	Value string
}

// Report is one page of an analytics report
type Report struct {
	Kind       ReportKind
	Title      string
	Rows       []ReportRow
	Page       int
	TotalPages int
}
