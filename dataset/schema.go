package dataset

// Source table columns read by the pipeline.
const (
	ColStartLat             = "start_lat"
	ColStartLng             = "start_lng"
	ColStartTime            = "start_time"
	ColDistanceMi           = "distance_mi"
	ColDescription          = "description"
	ColStreet               = "street"
	ColCity                 = "city"
	ColCounty               = "county"
	ColState                = "state"
	ColZipcode              = "zipcode"
	ColTimezone             = "timezone"
	ColAirportCode          = "airport_code"
	ColWeatherTimestamp     = "weather_timestamp"
	ColTemperatureF         = "temperature_f"
	ColHumidityPercent      = "humidity_percent"
	ColPressureIn           = "pressure_in"
	ColVisibilityMi         = "visibility_mi"
	ColWindDirection        = "wind_direction"
	ColWindSpeedMph         = "wind_speed_mph"
	ColWeatherCondition     = "weather_condition"
	ColAmenity              = "amenity"
	ColBump                 = "bump"
	ColCrossing             = "crossing"
	ColGiveWay              = "give_way"
	ColJunction             = "junction"
	ColNoExit               = "no_exit"
	ColRailway              = "railway"
	ColRoundabout           = "roundabout"
	ColStation              = "station"
	ColStop                 = "stop"
	ColTrafficCalming       = "traffic_calming"
	ColTrafficSignal        = "traffic_signal"
	ColSunriseSunset        = "sunrise_sunset"
	ColCivilTwilight        = "civil_twilight"
	ColNauticalTwilight     = "nautical_twilight"
	ColAstronomicalTwilight = "astronomical_twilight"
	ColSeverity             = "severity"
)

// Derived columns.
const (
	ColLabel        = "label"
	ColMonthSin     = "month_sin"
	ColMonthCos     = "month_cos"
	ColDayOfWeekSin = "dayofweek_sin"
	ColDayOfWeekCos = "dayofweek_cos"
	ColDaySin       = "day_sin"
	ColDayCos       = "day_cos"
	ColHourSin      = "hour_sin"
	ColHourCos      = "hour_cos"
	ColYear         = "year"
	ColWeatherTime  = "weather_time"
	ColECEFX        = "ecef_x"
	ColECEFY        = "ecef_y"
	ColECEFZ        = "ecef_z"
)

// Field describes one source column.
type Field struct {
	Name string
	Kind Kind
}

// RecordSchema lists the source columns, in selection order, with the kind
// each is loaded as.
var RecordSchema = []Field{
	{ColStartLat, KindFloat},
	{ColStartLng, KindFloat},
	{ColStartTime, KindTime},
	{ColDistanceMi, KindFloat},
	{ColDescription, KindString},
	{ColStreet, KindString},
	{ColCity, KindString},
	{ColCounty, KindString},
	{ColState, KindString},
	{ColZipcode, KindString},
	{ColTimezone, KindString},
	{ColAirportCode, KindString},
	{ColWeatherTimestamp, KindTime},
	{ColTemperatureF, KindFloat},
	{ColHumidityPercent, KindFloat},
	{ColPressureIn, KindFloat},
	{ColVisibilityMi, KindFloat},
	{ColWindDirection, KindString},
	{ColWindSpeedMph, KindFloat},
	{ColWeatherCondition, KindString},
	{ColAmenity, KindBool},
	{ColBump, KindBool},
	{ColCrossing, KindBool},
	{ColGiveWay, KindBool},
	{ColJunction, KindBool},
	{ColNoExit, KindBool},
	{ColRailway, KindBool},
	{ColRoundabout, KindBool},
	{ColStation, KindBool},
	{ColStop, KindBool},
	{ColTrafficCalming, KindBool},
	{ColTrafficSignal, KindBool},
	{ColSunriseSunset, KindString},
	{ColCivilTwilight, KindString},
	{ColNauticalTwilight, KindString},
	{ColAstronomicalTwilight, KindString},
	{ColSeverity, KindInt},
}

// RequiredColumns returns the names of RecordSchema.
func RequiredColumns() []string {
	names := make([]string, len(RecordSchema))
	for i, f := range RecordSchema {
		names[i] = f.Name
	}
	return names
}
