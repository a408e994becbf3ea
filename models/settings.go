package models

// SystemConfigKey is the key used in app_settings for the lookup Configuration.
const SystemConfigKey = "system_config"

// ActiveDatasetKey is the key used in app_settings for the id of the dataset
// currently served to queries.
const ActiveDatasetKey = "active_dataset_id"
