// Package domain models lunar mare regions and crater populations.
//
// # Data Sources
//
// Region geometry arrives as one GeoJSON FeatureCollection per mare, e.g.
// "mare_imbrium.geojson". Only the first feature of each file is used. A side
// table (mareInfo.csv) carries descriptive columns keyed by a "Mare" name.
//
// Crater data arrives in one of two shapes:
//
//	Pre-joined array (filtered_craters.json):
//	  {"longitude": -17.2, "latitude": 33.1, "size": 4.2, "polygon_name": "Mare Imbrium"}
//
//	Timestep tables (survived.csv, erased.csv):
//	  longitude,latitude,diameter,timestep[,erased_step]
//
// # Conventions
//
// Coordinates:
//
//	Selenographic degrees. Longitude in [-180, 180], latitude in [-90, 90].
//	Historical exports spell latitude "lattitude"; both spellings are accepted
//	and "latitude" wins when a row carries both.
//
// Diameter:
//
//	Stored in meters. Sources declare their unit ("m" or "km") and kilometre
//	values are multiplied by 1000 at load time. The diameter bins used by the
//	slider ([0,1,2,3,5,6,7,8,9,10]) are meters.
//
// Timesteps:
//
//	Integer simulation indices. A crater without a creation step exists from
//	step 0. A crater without an erasure step is never erased, i.e. its erasure
//	step is +∞. A crater is visible at step t iff created <= t < erased.
//
// # Region Keys
//
// A region key is the lowercased display name with whitespace runs replaced
// by underscores: "Oceanus Procellarum" -> "oceanus_procellarum". The same
// rule applied to a geometry filename stem joins geometry to metadata. See
// [NormalizeKey].
package domain
