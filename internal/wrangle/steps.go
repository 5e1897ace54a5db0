// Package wrangle turns the raw 311 case, department and source tables into
// one denormalized case table.
package wrangle

import (
	"errors"
	"fmt"
	"time"

	"github.com/KaramelBytes/casewrangle-cli/internal/frame"
)

// Column names used by the pipeline.
const (
	ColCaseClosed      = "case_closed"
	ColCaseLate        = "case_late"
	ColCouncilDistrict = "council_district"
	ColRequestAddress  = "request_address"
	ColNumDaysLate     = "num_days_late"
	ColNumWeeksLate    = "num_weeks_late"
	ColCaseOpenedDate  = "case_opened_date"
	ColCaseClosedDate  = "case_closed_date"
	ColSLADueDate      = "SLA_due_date"
	ColCaseAge         = "case_age"
	ColDaysToClosed    = "days_to_closed"
	ColCaseLifetime    = "case_lifetime"

	ColDeptDivision         = "dept_division"
	ColDeptName             = "dept_name"
	ColStandardizedDeptName = "standardized_dept_name"
	ColDepartment           = "department"
	ColDeptSubjectToSLA     = "dept_subject_to_SLA"

	ColSourceID = "source_id"
)

// ErrMissingColumn is returned when a step needs a column the table lacks.
var ErrMissingColumn = errors.New("missing required column")

func column(df *frame.Frame, step, name string) (*frame.Column, error) {
	if !df.Has(name) {
		return nil, fmt.Errorf("%s: %w: %s", step, ErrMissingColumn, name)
	}
	return df.Column(name)
}

// TurnValuesToBools rewrites case_closed and case_late as value == "YES".
func TurnValuesToBools(df *frame.Frame) (*frame.Frame, error) {
	for _, name := range []string{ColCaseClosed, ColCaseLate} {
		c, err := column(df, "turn_values_to_bools", name)
		if err != nil {
			return nil, err
		}
		if df, err = df.WithColumn(frame.Equals(c, "YES")); err != nil {
			return nil, fmt.Errorf("turn_values_to_bools: %w", err)
		}
	}
	return df, nil
}

// TurnDistrictString casts council_district to a string.
func TurnDistrictString(df *frame.Frame) (*frame.Frame, error) {
	c, err := column(df, "turn_district_string", ColCouncilDistrict)
	if err != nil {
		return nil, err
	}
	s, err := frame.Cast(c, frame.KindString)
	if err != nil {
		return nil, fmt.Errorf("turn_district_string: %w", err)
	}
	return df.WithColumn(s)
}

// EditAddress lowercases request_address and trims surrounding spaces.
func EditAddress(df *frame.Frame) (*frame.Frame, error) {
	c, err := column(df, "edit_address", ColRequestAddress)
	if err != nil {
		return nil, err
	}
	if c.Kind() != frame.KindString {
		if c, err = frame.Cast(c, frame.KindString); err != nil {
			return nil, fmt.Errorf("edit_address: %w", err)
		}
	}
	lower, err := frame.Lower(c)
	if err != nil {
		return nil, fmt.Errorf("edit_address: %w", err)
	}
	trimmed, err := frame.Trim(lower)
	if err != nil {
		return nil, fmt.Errorf("edit_address: %w", err)
	}
	return df.WithColumn(trimmed)
}

// CreateDaysLateToWeeks adds num_weeks_late = num_days_late / 7.
func CreateDaysLateToWeeks(df *frame.Frame) (*frame.Frame, error) {
	c, err := column(df, "create_days_late_to_weeks", ColNumDaysLate)
	if err != nil {
		return nil, err
	}
	if !c.Kind().Numeric() {
		if c, err = frame.Cast(c, frame.KindFloat); err != nil {
			return nil, fmt.Errorf("create_days_late_to_weeks: %w", err)
		}
	}
	weeks, err := frame.DivideBy(c, 7)
	if err != nil {
		return nil, fmt.Errorf("create_days_late_to_weeks: %w", err)
	}
	return df.WithColumn(weeks.Renamed(ColNumWeeksLate))
}

// ChangeToDate parses the opened, closed and SLA due dates with layout in loc.
// Cells that do not parse become null and are reported as warnings.
func ChangeToDate(df *frame.Frame, layout string, loc *time.Location) (*frame.Frame, []string, error) {
	var warnings []string
	for _, name := range []string{ColCaseOpenedDate, ColCaseClosedDate, ColSLADueDate} {
		c, err := column(df, "change_to_date", name)
		if err != nil {
			return nil, nil, err
		}
		if !c.Kind().Temporal() && c.Kind() != frame.KindString {
			if c, err = frame.Cast(c, frame.KindString); err != nil {
				return nil, nil, fmt.Errorf("change_to_date: %w", err)
			}
		}
		ts, failed, err := frame.ToTimestamp(c, layout, loc)
		if err != nil {
			return nil, nil, fmt.Errorf("change_to_date: %w", err)
		}
		if failed > 0 {
			warnings = append(warnings, fmt.Sprintf("%s: %d value(s) did not match layout %q and were set to null", name, failed, layout))
		}
		if df, err = df.WithColumn(ts); err != nil {
			return nil, nil, fmt.Errorf("change_to_date: %w", err)
		}
	}
	return df, warnings, nil
}

// CreateCaseAge adds case_age (days from opening to ref), days_to_closed and
// case_lifetime, which is case_age for open cases and days_to_closed otherwise.
func CreateCaseAge(df *frame.Frame, ref time.Time) (*frame.Frame, error) {
	const step = "create_case_age"
	opened, err := column(df, step, ColCaseOpenedDate)
	if err != nil {
		return nil, err
	}
	closedAt, err := column(df, step, ColCaseClosedDate)
	if err != nil {
		return nil, err
	}
	closed, err := column(df, step, ColCaseClosed)
	if err != nil {
		return nil, err
	}

	age, err := frame.DateDiffFrom(ref, opened)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", step, err)
	}
	toClosed, err := frame.DateDiff(closedAt, opened)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", step, err)
	}
	open, err := frame.Not(closed)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", step, err)
	}
	lifetime, err := frame.When(open, age, toClosed)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", step, err)
	}

	for _, c := range []*frame.Column{
		age.Renamed(ColCaseAge),
		toClosed.Renamed(ColDaysToClosed),
		lifetime.Renamed(ColCaseLifetime),
	} {
		if df, err = df.WithColumn(c); err != nil {
			return nil, fmt.Errorf("%s: %w", step, err)
		}
	}
	return df, nil
}

// JoinDeptData left-joins the department lookup on dept_division, keeps only
// the standardized name as department and turns dept_subject_to_SLA into a bool.
func JoinDeptData(df, dept *frame.Frame) (*frame.Frame, error) {
	const step = "join_dept_data"
	if _, err := column(df, step, ColDeptDivision); err != nil {
		return nil, err
	}
	if _, err := column(dept, step, ColDeptDivision); err != nil {
		return nil, err
	}
	out, err := df.LeftJoin(dept, ColDeptDivision)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", step, err)
	}
	out = out.Drop(ColDeptName)
	if out, err = out.Rename(ColStandardizedDeptName, ColDepartment); err != nil {
		return nil, fmt.Errorf("%s: %w", step, err)
	}
	sla, err := column(out, step, ColDeptSubjectToSLA)
	if err != nil {
		return nil, err
	}
	return out.WithColumn(frame.Equals(sla, "YES"))
}

// JoinSourceData left-joins the source lookup on source_id.
func JoinSourceData(df, source *frame.Frame) (*frame.Frame, error) {
	const step = "join_source_data"
	if _, err := column(df, step, ColSourceID); err != nil {
		return nil, err
	}
	if _, err := column(source, step, ColSourceID); err != nil {
		return nil, err
	}
	out, err := df.LeftJoin(source, ColSourceID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", step, err)
	}
	return out, nil
}
