package sqlinline

// QRotationEnsure returns the cursors of a key, creating them at zero. The
// no-op update makes an existing row, including one inserted by a racing
// first access, come back through returning.
const QRotationEnsure = `--sql 41a8d911-3503-43ca-b31a-664d88ac92d5
insert into feed_rotation_state (user_id, vibe, fashion_style, outfit_index, location_index, accessory_index, total_generations, created_at, updated_at)
values ($1::uuid, $2::text, $3::text, 0, 0, 0, 0, now(), now())
on conflict (user_id, vibe, fashion_style) do update
    set updated_at = feed_rotation_state.updated_at
returning outfit_index, location_index, accessory_index, total_generations, last_used_at;
`

// QRotationAdd advances the cursors by a delta in a single atomic upsert.
const QRotationAdd = `--sql 4837790f-0e95-43a6-b3b6-6ec747878418
insert into feed_rotation_state (user_id, vibe, fashion_style, outfit_index, location_index, accessory_index, total_generations, last_used_at, created_at, updated_at)
values ($1::uuid, $2::text, $3::text, $4::int, $5::int, $6::int, 1, now(), now(), now())
on conflict (user_id, vibe, fashion_style) do update set
    outfit_index = feed_rotation_state.outfit_index + excluded.outfit_index,
    location_index = feed_rotation_state.location_index + excluded.location_index,
    accessory_index = feed_rotation_state.accessory_index + excluded.accessory_index,
    total_generations = feed_rotation_state.total_generations + 1,
    last_used_at = now(),
    updated_at = now()
returning outfit_index, location_index, accessory_index, total_generations, last_used_at;
`

// QRotationReset zeroes one key, or every key of the user when $2 is empty.
const QRotationReset = `--sql e209c956-ef0f-423f-94fe-b081ab7a8d4b
update feed_rotation_state
set outfit_index = 0,
    location_index = 0,
    accessory_index = 0,
    updated_at = now()
where user_id = $1::uuid
  and ($2::text = '' or (vibe = $2::text and fashion_style = $3::text));
`
