package main

const (
	appTitle                 = "CrimeSpot"
	noticeReportSubmitted    = "Report submitted successfully!"
	errorReportSaveFailed    = "Error saving report!"
	errorInvalidCredentials  = "Invalid username or password"
	errorLoginFailed         = "Login failed, please try again."
	errorReportsLoadFailed   = "Could not load reports."
	errorDashboardLoadFailed = "Could not load city list."
	errorAdminScopeInvalid   = "Access restricted: invalid admin scope"
)

var reportCategories = []string{
	"Theft",
	"Assault",
	"Burglary",
	"Harassment",
	"Vandalism",
	"Fraud",
	"Other",
}

type baseViewData struct {
	Title         string
	AppTitle      string
	Session       *AdminSession
	ErrorMessage  string
	NoticeMessage string
}

type dashboardViewData struct {
	baseViewData
	Cities         []string
	AllCitiesLabel string
}

type reportFormViewData struct {
	baseViewData
	Categories []string
}

type staticPageViewData struct {
	baseViewData
}

type adminLoginViewData struct {
	baseViewData
	Username string
}

type adminReportRowView struct {
	ID          int
	Type        string
	Description string
	City        string
	Location    string
	Date        string
	Status      string
	CanVerify   bool
	CanReject   bool
}

type adminDashboardViewData struct {
	baseViewData
	ScopeLabel string
	Counts     StatusCounts
	Reports    []adminReportRowView
}
