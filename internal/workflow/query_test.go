package workflow

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"transport-request-system/internal/entities"
)

func day(d int) time.Time {
	return time.Date(2025, 1, d, 0, 0, 0, 0, time.UTC)
}

func sample() []entities.Application {
	base := time.Date(2025, 1, 1, 8, 0, 0, 0, time.UTC)
	return []entities.Application{
		{ID: 1, OrganizationUnit: "Logistics", Status: entities.StatusCreatedOrModified, ApplicationDate: day(10), CreatedAt: base},
		{ID: 2, OrganizationUnit: "Finance", Status: entities.StatusApproved, ApplicationDate: day(12), CreatedAt: base.Add(time.Hour)},
		{ID: 3, OrganizationUnit: "logistics east", Status: entities.StatusCompleted, ApplicationDate: day(15), CreatedAt: base.Add(2 * time.Hour)},
		{ID: 4, OrganizationUnit: "Logistics", Status: entities.StatusDeleted, ApplicationDate: day(11), CreatedAt: base.Add(3 * time.Hour)},
		{ID: 5, OrganizationUnit: "HQ Logistics", Status: entities.StatusApproved, ApplicationDate: day(20), CreatedAt: base.Add(2 * time.Hour)},
	}
}

func ids(apps []entities.Application) []uint64 {
	out := make([]uint64, 0, len(apps))
	for _, a := range apps {
		out = append(out, a.ID)
	}
	return out
}

func TestSelect_NoFilterExcludesDeletedNewestFirst(t *testing.T) {
	got := Select(entities.ApplicationFilter{}, sample())
	// 3 и 5 созданы одновременно: при равенстве выше больший id
	assert.Equal(t, []uint64{5, 3, 2, 1}, ids(got))
}

func TestSelect_StatusSet(t *testing.T) {
	filter := entities.ApplicationFilter{
		SelectedStatuses: []entities.ApplicationStatus{entities.StatusApproved, entities.StatusCompleted},
	}
	assert.Equal(t, []uint64{5, 3, 2}, ids(Select(filter, sample())))

	onlyDeleted := entities.ApplicationFilter{SelectedStatuses: []entities.ApplicationStatus{entities.StatusDeleted}}
	assert.Empty(t, Select(onlyDeleted, sample()))
}

func TestSelect_OrganizationUnitIsCaseSensitive(t *testing.T) {
	filter := entities.ApplicationFilter{OrganizationUnit: "Logistics"}
	assert.Equal(t, []uint64{5, 1}, ids(Select(filter, sample())))
}

func TestSelect_DateRangeInclusive(t *testing.T) {
	from, to := day(12), day(15)
	filter := entities.ApplicationFilter{DateFrom: &from, DateTo: &to}
	assert.Equal(t, []uint64{3, 2}, ids(Select(filter, sample())))
}

func TestSelect_DoesNotMutateInput(t *testing.T) {
	input := sample()
	_ = Select(entities.ApplicationFilter{}, input)
	assert.Equal(t, []uint64{1, 2, 3, 4, 5}, ids(input))
}
