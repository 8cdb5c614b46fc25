package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"feeledger/internal/core"
)

// decimal accepts a JSON number or a numeric string.
type decimal string

func (d *decimal) UnmarshalJSON(b []byte) error {
	if string(b) == "null" {
		*d = ""
		return nil
	}
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*d = decimal(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return err
	}
	*d = decimal(n.String())
	return nil
}

func (d decimal) money() (core.Money, error) {
	cents, err := core.ParseDecimalToCents(string(d))
	if err != nil {
		return core.Money{}, fmt.Errorf("monthlyFee: %w", err)
	}
	return core.Money{Cents: cents}, nil
}

type createStudentRequest struct {
	Name       string  `json:"name" validate:"required,max=200"`
	ParentName string  `json:"parentName" validate:"required,max=200"`
	Phone      string  `json:"phone" validate:"required,max=200"`
	Class      string  `json:"class" validate:"required,max=200"`
	MonthlyFee decimal `json:"monthlyFee" validate:"required"`
	JoinedDate string  `json:"joinedDate" validate:"omitempty,datetime=2006-01-02"`
}

// fields converts the request; joinedDate is read as midnight in loc.
func (req createStudentRequest) fields(loc *time.Location) (core.StudentFields, time.Time, error) {
	fee, err := req.MonthlyFee.money()
	if err != nil {
		return core.StudentFields{}, time.Time{}, err
	}
	var joined time.Time
	if req.JoinedDate != "" {
		// Already checked by the datetime tag.
		joined, _ = time.ParseInLocation(dateLayout, req.JoinedDate, loc)
	}
	f := core.StudentFields{
		Name:       req.Name,
		ParentName: req.ParentName,
		Phone:      req.Phone,
		Class:      req.Class,
		MonthlyFee: fee,
	}.Normalize()
	if err := f.Validate(); err != nil {
		return core.StudentFields{}, time.Time{}, err
	}
	return f, joined, nil
}

// updateStudentRequest merges over the stored record; absent fields are kept.
type updateStudentRequest struct {
	Name       *string  `json:"name"`
	ParentName *string  `json:"parentName"`
	Phone      *string  `json:"phone"`
	Class      *string  `json:"class"`
	MonthlyFee *decimal `json:"monthlyFee"`
	Active     *bool    `json:"active"`
}

func (req updateStudentRequest) patch() (core.StudentPatch, error) {
	p := core.StudentPatch{
		Name:       req.Name,
		ParentName: req.ParentName,
		Phone:      req.Phone,
		Class:      req.Class,
		Active:     req.Active,
	}
	if req.MonthlyFee != nil {
		fee, err := req.MonthlyFee.money()
		if err != nil {
			return core.StudentPatch{}, err
		}
		p.MonthlyFee = &fee
	}
	return p, nil
}

// setActiveRequest toggles the flag when Active is omitted.
type setActiveRequest struct {
	Active *bool `json:"active"`
}

type recordPaymentRequest struct {
	StudentID   string   `json:"studentId" validate:"required"`
	Months      []string `json:"months"`
	PaymentDate string   `json:"paymentDate" validate:"omitempty,datetime=2006-01-02"`
	Remarks     string   `json:"remarks" validate:"max=500"`
}

// paymentDate reads the date as midnight in loc. Empty means now.
func (req recordPaymentRequest) paymentDate(loc *time.Location) time.Time {
	if req.PaymentDate == "" {
		return time.Time{}
	}
	t, _ := time.ParseInLocation(dateLayout, req.PaymentDate, loc)
	return t
}

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// decodeJSON reads a JSON body into dst. An empty body is allowed when
// allowEmpty is set.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any, allowEmpty bool) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) && allowEmpty {
			return nil
		}
		return fmt.Errorf("%w: %s", errBadRequest, describeDecodeError(err))
	}
	if dec.More() {
		return fmt.Errorf("%w: body must hold a single JSON object", errBadRequest)
	}
	return nil
}

func describeDecodeError(err error) string {
	var syntax *json.SyntaxError
	var typeErr *json.UnmarshalTypeError
	var tooLarge *http.MaxBytesError
	switch {
	case errors.Is(err, io.EOF):
		return "request body is empty"
	case errors.As(err, &syntax):
		return "invalid JSON at offset " + strconv.FormatInt(syntax.Offset, 10)
	case errors.As(err, &typeErr):
		return fmt.Sprintf("field %q has the wrong type", typeErr.Field)
	case errors.As(err, &tooLarge):
		return "request body too large"
	case strings.HasPrefix(err.Error(), "json: unknown field "):
		return "unknown field " + strings.TrimPrefix(err.Error(), "json: unknown field ")
	default:
		return "invalid JSON"
	}
}

// validateStruct runs the validator and reports failures as validation errors.
func (s *Server) validateStruct(v any) error {
	err := s.validate.Struct(v)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("%w: %v", core.ErrValidation, err)
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msgs = append(msgs, describeFieldError(fe))
	}
	return fmt.Errorf("%w: %s", core.ErrValidation, strings.Join(msgs, "; "))
}

func describeFieldError(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return fe.Field() + " is required"
	case "max":
		return fmt.Sprintf("%s must be at most %s characters", fe.Field(), fe.Param())
	case "datetime":
		return fe.Field() + " must be a date (YYYY-MM-DD)"
	default:
		return fmt.Sprintf("%s failed %s", fe.Field(), fe.Tag())
	}
}
