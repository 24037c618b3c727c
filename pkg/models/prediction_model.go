package models

// Education levels accepted by the prediction backend.
// The apostrophes are the typographic U+2019 the backend was trained on.
const (
	EducationHighSchool = "High School"
	EducationBachelors  = "Bachelor’s"
	EducationMasters    = "Master’s"
	EducationPhD        = "PhD"
)

const (
	GenderMale   = "Male"
	GenderFemale = "Female"
	GenderOther  = "Other"
)

const (
	MaritalSingle   = "Single"
	MaritalMarried  = "Married"
	MaritalDivorced = "Divorced"
)

// Input bounds for the prediction form.
const (
	MinAge           = 17
	MaxAge           = 100
	MinHoursPerWeek  = 20
	MaxHoursPerWeek  = 100
	DefaultAge       = 28
	DefaultHours     = 40
	DefaultJobTitle  = "Software Engineer"
	TopFeaturesLimit = 5
)

// Option lists in display order.
var (
	EducationLevels = []string{EducationHighSchool, EducationBachelors, EducationMasters, EducationPhD}
	Genders         = []string{GenderMale, GenderFemale, GenderOther}
	MaritalStatuses = []string{MaritalSingle, MaritalMarried, MaritalDivorced}
)

// PredictionRequest is the body POSTed to the backend /predict endpoint.
// The form and binding tags are used by the dashboard; the validate tags by the CLI.
type PredictionRequest struct {
	Age           int    `json:"age" form:"age" binding:"required,min=17,max=100" validate:"required,min=17,max=100"`
	Education     string `json:"education" form:"education" binding:"required,oneof='High School' Bachelor’s Master’s PhD" validate:"required,oneof='High School' Bachelor’s Master’s PhD"`
	JobTitle      string `json:"job_title" form:"job_title" binding:"required,notblank" validate:"required,notblank"`
	HoursPerWeek  int    `json:"hours_per_week" form:"hours_per_week" binding:"required,min=20,max=100" validate:"required,min=20,max=100"`
	Gender        string `json:"gender" form:"gender" binding:"required,oneof=Male Female Other" validate:"required,oneof=Male Female Other"`
	MaritalStatus string `json:"marital_status" form:"marital_status" binding:"required,oneof=Single Married Divorced" validate:"required,oneof=Single Married Divorced"`
}

// DefaultPredictionRequest returns the values the form starts with.
func DefaultPredictionRequest() PredictionRequest {
	return PredictionRequest{
		Age:           DefaultAge,
		Education:     EducationHighSchool,
		JobTitle:      DefaultJobTitle,
		HoursPerWeek:  DefaultHours,
		Gender:        GenderMale,
		MaritalStatus: MaritalSingle,
	}
}

// PredictionResponse is the decoded /predict success body.
type PredictionResponse struct {
	PredictedSalaryUSD float64 `json:"predicted_salary_usd"`
}

// AnalysisSummary is the dataset summary returned by /analyze under "summary".
type AnalysisSummary struct {
	RecordCount   int     `json:"record_count"`
	AverageSalary float64 `json:"average_salary"`
	MinSalary     float64 `json:"min_salary"`
	MaxSalary     float64 `json:"max_salary"`
}

// FeatureImportance is one entry of /explain "top_features".
type FeatureImportance struct {
	Feature    string  `json:"feature"`
	Importance float64 `json:"importance"`
}
